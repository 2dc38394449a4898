package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/logging"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/metrics"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/pacing"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/tracing"
	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// Scraper is the watch-page caption source (strategy A). It accepts a
// bare video id or a full watch URL and returns segments with timing
// in whole seconds. Failures carry a *SourceError classification.
type Scraper interface {
	FetchCaptions(ctx context.Context, target string) ([]models.TranscriptSegment, error)
}

// RendererClient is the internal renderer-response source (strategy B).
// It returns the decoded response as-is; the resolver locates the
// segment list inside it.
type RendererClient interface {
	FetchTranscript(ctx context.Context, videoID string) (any, error)
}

// Resolver orchestrates the fixed fallback sequence across both
// caption sources: scrape by id, renderer response, then scrape again
// against the two full URL forms of the video. The pacer is consulted
// before every outbound attempt.
type Resolver struct {
	scraper  Scraper
	renderer RendererClient
	pacer    *pacing.Pacer
	logger   *logging.Logger
}

// NewResolver creates a resolver over the two caption sources
func NewResolver(scraper Scraper, renderer RendererClient, pacer *pacing.Pacer, logger *logging.Logger) *Resolver {
	return &Resolver{
		scraper:  scraper,
		renderer: renderer,
		pacer:    pacer,
		logger:   logger,
	}
}

// Pacer exposes the resolver's pacing state for the boundary layer
func (r *Resolver) Pacer() *pacing.Pacer {
	return r.pacer
}

// Resolve retrieves the transcript for a video id, trying each source
// in the fallback sequence and returning the first non-empty result.
// The sequence is exhausted once per call; the only state carried
// across calls is the pacer's consecutive-failure counter.
func (r *Resolver) Resolve(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, &InvalidInputError{Message: "video id is required"}
	}

	span, ctx := tracing.StartSpan(ctx, "transcript.resolve")
	defer span.Finish()
	span.SetTag("video_id", videoID)

	start := time.Now()
	log := r.logger.WithVideoID(videoID)

	// Attempt 1: scrape with the bare id. A permanent classification
	// here aborts the whole resolution: disabled captions or a
	// private/unavailable video will not look different to any other
	// source.
	segments, err := r.scrapeAttempt(ctx, videoID, videoID, "scrape_id")
	if len(segments) > 0 {
		return r.succeed(span, log, start, segments, "scrape_id")
	}
	if err != nil {
		if timeoutErr := r.asTimeout(ctx, videoID, start, err); timeoutErr != nil {
			tracing.LogError(span, timeoutErr)
			return nil, timeoutErr
		}

		var serr *SourceError
		if errors.As(err, &serr) && serr.Kind.Permanent() {
			log.WithError(err).Warn("Video permanently unavailable for transcripts")
			span.SetTag("outcome", "permanent")
			permErr := permanentError(serr.Kind, videoID)
			tracing.LogError(span, permErr)
			metrics.RecordResolution("permanent", time.Since(start).Seconds())
			return nil, permErr
		}

		log.WithError(err).Debug("Scrape by id failed, falling back to renderer client")
	}

	// Attempt 2: the renderer response.
	segments, err = r.rendererAttempt(ctx, videoID)
	if len(segments) > 0 {
		return r.succeed(span, log, start, segments, "renderer")
	}
	if err != nil {
		if timeoutErr := r.asTimeout(ctx, videoID, start, err); timeoutErr != nil {
			tracing.LogError(span, timeoutErr)
			return nil, timeoutErr
		}
		log.WithError(err).Debug("Renderer client failed, retrying scrape with full URLs")
	}

	// Attempts 3 and 4: scrape again against both URL forms. Permanent
	// classification only applies to the first attempt; here every
	// failure just advances the sequence.
	urls := []string{
		fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
		fmt.Sprintf("https://youtu.be/%s", videoID),
	}
	for _, url := range urls {
		segments, err = r.scrapeAttempt(ctx, videoID, url, "scrape_url")
		if len(segments) > 0 {
			return r.succeed(span, log, start, segments, "scrape_url")
		}
		if err != nil {
			if timeoutErr := r.asTimeout(ctx, videoID, start, err); timeoutErr != nil {
				tracing.LogError(span, timeoutErr)
				return nil, timeoutErr
			}
			log.WithError(err).Debug("Scrape by URL failed")
		}
	}

	r.pacer.RecordFailure()
	log.Warn("All transcript sources exhausted")
	span.SetTag("outcome", "not_found")
	notFound := &NotFoundError{VideoID: videoID}
	tracing.LogError(span, notFound)
	metrics.RecordResolution("not_found", time.Since(start).Seconds())

	return nil, notFound
}

// scrapeAttempt paces, queries the scraper and normalizes the result
func (r *Resolver) scrapeAttempt(ctx context.Context, videoID, target, attempt string) ([]models.TranscriptSegment, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := r.scraper.FetchCaptions(ctx, target)
	if err != nil {
		metrics.TranscriptAttemptsTotal.WithLabelValues(attempt, "failure").Inc()
		return nil, err
	}

	segments := normalizeScraped(raw)
	if len(segments) == 0 {
		metrics.TranscriptAttemptsTotal.WithLabelValues(attempt, "empty").Inc()
		return nil, nil
	}

	metrics.TranscriptAttemptsTotal.WithLabelValues(attempt, "success").Inc()
	return segments, nil
}

// rendererAttempt paces, queries the renderer client and extracts the
// segment list from whichever known shape the response uses
func (r *Resolver) rendererAttempt(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := r.renderer.FetchTranscript(ctx, videoID)
	if err != nil {
		metrics.TranscriptAttemptsTotal.WithLabelValues("renderer", "failure").Inc()
		return nil, err
	}

	segments, ok := extractSegments(raw)
	if !ok {
		metrics.TranscriptAttemptsTotal.WithLabelValues("renderer", "failure").Inc()
		return nil, fmt.Errorf("unrecognized renderer response shape for video %s", videoID)
	}
	if len(segments) == 0 {
		metrics.TranscriptAttemptsTotal.WithLabelValues("renderer", "empty").Inc()
		return nil, nil
	}

	metrics.TranscriptAttemptsTotal.WithLabelValues("renderer", "success").Inc()
	return segments, nil
}

func (r *Resolver) succeed(span opentracing.Span, log *logging.Logger, start time.Time, segments []models.TranscriptSegment, source string) ([]models.TranscriptSegment, error) {
	r.pacer.RecordSuccess()
	log.WithField("source", source).WithField("segments", len(segments)).Info("Transcript resolved")
	span.SetTag("outcome", "success")
	span.SetTag("source", source)
	metrics.RecordResolution("success", time.Since(start).Seconds())
	return segments, nil
}

// asTimeout maps a deadline expiry to the dedicated timeout error so
// the boundary can distinguish it from an exhausted fallback sequence
func (r *Resolver) asTimeout(ctx context.Context, videoID string, start time.Time, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.RecordResolution("timeout", time.Since(start).Seconds())
		return &UpstreamTimeoutError{VideoID: videoID}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// normalizeScraped trims text and clamps timing on scraper output.
// Segments without any extractable text were already skipped by the
// scraper; nothing else is filtered here.
func normalizeScraped(raw []models.TranscriptSegment) []models.TranscriptSegment {
	segments := make([]models.TranscriptSegment, 0, len(raw))
	for _, seg := range raw {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Offset < 0 {
			seg.Offset = 0
		}
		if seg.Duration < 0 {
			seg.Duration = 0
		}
		segments = append(segments, seg)
	}
	return segments
}
