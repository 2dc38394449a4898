package models

import (
	"fmt"
	"strings"
)

// TranscriptSegment represents a single timed caption unit
type TranscriptSegment struct {
	Text     string `json:"text"`
	Offset   int    `json:"offset"`
	Duration int    `json:"duration"`
}

// Valid reports whether the segment satisfies the transcript invariants:
// trimmed non-empty text and non-negative timing
func (s TranscriptSegment) Valid() bool {
	return strings.TrimSpace(s.Text) != "" && s.Offset >= 0 && s.Duration >= 0
}

// VideoInfo holds identifier plus placeholder presentation data.
// Title and duration are not genuinely fetched; only the id and the
// thumbnail URL shape carry meaning.
type VideoInfo struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// NewVideoInfo builds the per-request placeholder metadata for a video id
func NewVideoInfo(videoID string) *VideoInfo {
	return &VideoInfo{
		VideoID:      videoID,
		Title:        fmt.Sprintf("YouTube Video (%s)", videoID),
		Duration:     0,
		ThumbnailURL: fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID),
	}
}

// TranscriptFormat constants
const (
	TranscriptFormatTXT  = "txt"
	TranscriptFormatJSON = "json"
	TranscriptFormatCSV  = "csv"
	TranscriptFormatSRT  = "srt"
	TranscriptFormatVTT  = "vtt"
)
