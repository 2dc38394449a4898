package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/logging"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/metrics"
)

const RequestIDKey = "request_id"

// Logger middleware logs request details and records HTTP metrics.
// Each request gets a generated id, echoed back in X-Request-ID.
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := uuid.New().String()
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger.WithRequestID(requestID).
			LogHTTPRequest(c.Request.Method, path, c.ClientIP(), status, latency)

		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), statusLabel(status), latency.Seconds())
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
