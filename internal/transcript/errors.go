package transcript

import "fmt"

// FailureKind classifies a caption-source failure. The scraper client
// maps upstream error text onto these kinds at its own boundary so the
// resolver never sniffs message substrings.
type FailureKind int

const (
	// KindTransient covers network errors, parse errors and anything
	// else worth retrying through the remaining fallback chain
	KindTransient FailureKind = iota
	// KindDisabled means captions are turned off for the video
	KindDisabled
	// KindUnavailable means the video itself cannot be reached
	KindUnavailable
	// KindPrivate means the video is private
	KindPrivate
	// KindRateLimited means the upstream is rejecting us for volume
	KindRateLimited
	// KindUnknown is an unclassified upstream failure
	KindUnknown
)

// Permanent reports whether the kind makes further fallback attempts
// futile. Rate limiting is transient by nature; it is paced, not
// aborted.
func (k FailureKind) Permanent() bool {
	switch k {
	case KindDisabled, KindUnavailable, KindPrivate:
		return true
	default:
		return false
	}
}

// SourceError is a classified failure from a caption source
type SourceError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// InvalidInputError indicates a malformed or absent video id. Never
// retried; no pacing or network interaction happens first.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// PermanentError is surfaced when the first scrape attempt reports a
// condition that no other strategy can recover from
type PermanentError struct {
	Kind    FailureKind
	VideoID string
	Message string
}

func (e *PermanentError) Error() string {
	return e.Message
}

// NotFoundError is surfaced when every fallback strategy has been
// exhausted without producing a non-empty transcript
type NotFoundError struct {
	VideoID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(`No transcript could be retrieved for video %s.

This usually means one of the following:
- Captions are disabled on this video
- The video is private or unavailable
- The video owner has turned off transcripts
- The transcript service is temporarily unavailable

Please verify the video has captions enabled and try again later.`, e.VideoID)
}

// UpstreamTimeoutError indicates the caller-imposed deadline expired
// before resolution finished. Distinct from NotFoundError so the
// boundary can report it separately.
type UpstreamTimeoutError struct {
	VideoID string
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("timed out while retrieving transcript for video %s", e.VideoID)
}

// Fixed messages for the three permanent failure conditions
const (
	msgDisabled    = "Transcript is disabled on this video"
	msgUnavailable = "Video is unavailable"
	msgPrivate     = "Video is private"
)

func permanentError(kind FailureKind, videoID string) *PermanentError {
	msg := msgUnavailable
	switch kind {
	case KindDisabled:
		msg = msgDisabled
	case KindPrivate:
		msg = msgPrivate
	}

	return &PermanentError{Kind: kind, VideoID: videoID, Message: msg}
}
