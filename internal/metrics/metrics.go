package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcriptd_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Resolution Metrics
	TranscriptResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptd_resolutions_total",
			Help: "Total number of transcript resolutions by outcome",
		},
		[]string{"outcome"},
	)

	TranscriptAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptd_attempts_total",
			Help: "Total number of per-source fetch attempts",
		},
		[]string{"source", "result"},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcriptd_resolution_duration_seconds",
			Help:    "End-to-end transcript resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		},
	)

	ConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcriptd_consecutive_failures",
			Help: "Current consecutive-failure count driving the pacing delay",
		},
	)

	PacingDelaySeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcriptd_pacing_delay_seconds",
			Help: "Delay the pacer will enforce before the next outbound attempt",
		},
	)

	// Render Metrics
	TranscriptRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptd_renders_total",
			Help: "Total number of transcript renders by format",
		},
		[]string{"format"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcriptd_cache_hits_total",
			Help: "Total number of transcript cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcriptd_cache_misses_total",
			Help: "Total number of transcript cache misses",
		},
	)

	// Rate Limit Metrics
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcriptd_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the HTTP rate limiter",
		},
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordResolution records the outcome and duration of a resolution
func RecordResolution(outcome string, duration float64) {
	TranscriptResolutionsTotal.WithLabelValues(outcome).Inc()
	ResolutionDuration.Observe(duration)
}

// RecordRender records a transcript render by format
func RecordRender(format string) {
	TranscriptRendersTotal.WithLabelValues(format).Inc()
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHitsTotal.Inc()
	} else {
		CacheMissesTotal.Inc()
	}
}

// UpdatePacingMetrics publishes the pacer's current state
func UpdatePacingMetrics(failures int, delaySeconds float64) {
	ConsecutiveFailures.Set(float64(failures))
	PacingDelaySeconds.Set(delaySeconds)
}
