package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/format"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/metrics"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/transcript"
	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// videoIDPattern is the boundary validity check for YouTube video ids
var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Resolver is the transcript resolution entry point used by the API
type Resolver interface {
	Resolve(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
}

// TranscriptCache is the optional read-through cache in front of the
// resolver. Entries are short-lived; a nil segment list is a miss.
type TranscriptCache interface {
	GetTranscript(ctx context.Context, videoID string) ([]models.TranscriptSegment, error)
	SetTranscript(ctx context.Context, videoID string, segments []models.TranscriptSegment, ttl time.Duration) error
	DeleteTranscript(ctx context.Context, videoID string) error
	GetRendered(ctx context.Context, videoID, format string) (string, error)
	SetRendered(ctx context.Context, videoID, format, rendered string, ttl time.Duration) error
	IncrementStat(ctx context.Context, stat string) error
	GetStat(ctx context.Context, stat string) (int64, error)
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
	Ping(ctx context.Context) error
}

const (
	statTranscriptsResolved = "transcripts_resolved"
	statDownloads           = "downloads"

	// Upstream fetch budget per video. Shared across replicas through
	// the cache, unlike the per-client middleware limiter.
	resolveAttemptLimit  = 10
	resolveAttemptWindow = time.Minute
)

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status": "healthy",
		"time":   time.Now().UTC(),
	}

	if api.cache != nil {
		if err := api.cache.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["cache"] = "unreachable"
		} else {
			health["cache"] = "ok"
		}
	}

	c.JSON(http.StatusOK, health)
}

// getTranscript resolves and returns the transcript inline as JSON
func (api *API) getTranscript(c *gin.Context) {
	videoID := c.Param("videoId")
	if !videoIDPattern.MatchString(videoID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid video ID format",
		})
		return
	}

	segments, err := api.resolveTranscript(c, videoID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"success": false,
			"videoId": videoID,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"videoId":    videoID,
		"transcript": segments,
	})
}

// downloadTranscript resolves, renders and delivers the transcript as
// a file attachment in the requested format
func (api *API) downloadTranscript(c *gin.Context) {
	videoID := c.Param("videoId")
	if !videoIDPattern.MatchString(videoID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid video ID format",
		})
		return
	}

	outputFormat := c.DefaultQuery("format", models.TranscriptFormatTXT)
	ext := format.Extension(outputFormat)

	if api.cache != nil {
		cached, err := api.cache.GetRendered(c.Request.Context(), videoID, ext)
		if err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Rendered cache read failed")
		}
		if cached != "" {
			metrics.RecordCacheAccess(true)
			api.serveAttachment(c, videoID, outputFormat, cached)
			return
		}
	}

	segments, err := api.resolveTranscript(c, videoID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"success": false,
			"videoId": videoID,
			"error":   err.Error(),
		})
		return
	}

	rendered, err := format.Render(segments, outputFormat)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"success": false,
			"videoId": videoID,
			"error":   err.Error(),
		})
		return
	}

	metrics.RecordRender(ext)

	if api.cache != nil {
		if err := api.cache.SetRendered(c.Request.Context(), videoID, ext, rendered, api.cacheTTL); err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Rendered cache write failed")
		}
	}

	api.serveAttachment(c, videoID, outputFormat, rendered)
}

func (api *API) serveAttachment(c *gin.Context, videoID, outputFormat, rendered string) {
	if api.cache != nil {
		if err := api.cache.IncrementStat(c.Request.Context(), statDownloads); err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Stat counter update failed")
		}
	}

	filename := fmt.Sprintf("%s.%s", videoID, format.Extension(outputFormat))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(outputFormat), []byte(rendered))
}

// invalidateTranscript drops the cached transcript and rendered
// outputs so the next request fetches fresh captions
func (api *API) invalidateTranscript(c *gin.Context) {
	videoID := c.Param("videoId")
	if !videoIDPattern.MatchString(videoID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid video ID format",
		})
		return
	}

	if api.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Cache is not configured",
		})
		return
	}

	if err := api.cache.DeleteTranscript(c.Request.Context(), videoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"videoId": videoID,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"videoId": videoID,
	})
}

// getStats reports the cache-backed service counters
func (api *API) getStats(c *gin.Context) {
	if api.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Cache is not configured",
		})
		return
	}

	ctx := c.Request.Context()
	stats := gin.H{}
	for _, stat := range []string{statTranscriptsResolved, statDownloads} {
		n, err := api.cache.GetStat(ctx, stat)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		stats[stat] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// getVideoInfo returns placeholder metadata for a video id. Only the
// id and thumbnail URL shape are meaningful.
func (api *API) getVideoInfo(c *gin.Context) {
	videoID := c.Param("videoId")
	if !videoIDPattern.MatchString(videoID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid video ID format",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"video":   models.NewVideoInfo(videoID),
	})
}

// resolveTranscript runs the cache-then-resolver flow under the
// configured request deadline
func (api *API) resolveTranscript(c *gin.Context, videoID string) ([]models.TranscriptSegment, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), api.requestDeadline)
	defer cancel()

	if api.cache != nil {
		cached, err := api.cache.GetTranscript(ctx, videoID)
		if err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Transcript cache read failed")
		}
		metrics.RecordCacheAccess(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	if api.cache != nil {
		allowed, err := api.cache.CheckRateLimit(ctx, "resolve:"+videoID, resolveAttemptLimit, resolveAttemptWindow)
		if err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Rate limit check failed")
		} else if !allowed {
			metrics.RateLimitRejectionsTotal.Inc()
			return nil, errors.New("too many requests for this video, please retry later")
		}
	}

	segments, err := api.resolver.Resolve(ctx, videoID)

	if pacer := api.pacer; pacer != nil {
		metrics.UpdatePacingMetrics(pacer.Failures(), pacer.Delay().Seconds())
	}

	if err != nil {
		return nil, err
	}

	if api.cache != nil {
		if err := api.cache.SetTranscript(ctx, videoID, segments, api.cacheTTL); err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Transcript cache write failed")
		}
		if err := api.cache.IncrementStat(ctx, statTranscriptsResolved); err != nil {
			api.logger.WithVideoID(videoID).WithError(err).Warn("Stat counter update failed")
		}
	}

	return segments, nil
}

// statusForError maps the resolution error taxonomy onto HTTP status
// codes. Typed errors are matched first; the message fallback covers
// upstream phrasings that have no dedicated type.
func statusForError(err error) int {
	var invalidErr *transcript.InvalidInputError
	if errors.As(err, &invalidErr) {
		return http.StatusBadRequest
	}

	var validationErr *format.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	var permanentErr *transcript.PermanentError
	if errors.As(err, &permanentErr) {
		return http.StatusNotFound
	}

	var notFoundErr *transcript.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound
	}

	var timeoutErr *transcript.UpstreamTimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "not found"),
		strings.Contains(msg, "no transcript"):
		return http.StatusNotFound
	case strings.Contains(msg, "live"), strings.Contains(msg, "shorts"),
		strings.Contains(msg, "invalid format"):
		return http.StatusBadRequest
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "rate limit"):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
