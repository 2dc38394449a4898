package format

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// ValidationError indicates malformed segment data reached the renderer
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Render serializes a transcript into the requested text format.
// Format matching is case-insensitive; an unrecognized format falls
// back to plain text. Segments are validated before dispatch
// regardless of the requested format.
func Render(segments []models.TranscriptSegment, format string) (string, error) {
	if err := validate(segments); err != nil {
		return "", err
	}

	switch strings.ToLower(format) {
	case models.TranscriptFormatJSON:
		return renderJSON(segments)
	case models.TranscriptFormatCSV:
		return renderCSV(segments), nil
	case models.TranscriptFormatSRT:
		return renderSRT(segments), nil
	case models.TranscriptFormatVTT:
		return renderVTT(segments), nil
	default:
		return renderTXT(segments), nil
	}
}

// ContentType returns the MIME type for a rendered format
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case models.TranscriptFormatJSON:
		return "application/json"
	case models.TranscriptFormatCSV:
		return "text/csv"
	case models.TranscriptFormatSRT:
		return "application/x-subrip"
	case models.TranscriptFormatVTT:
		return "text/vtt"
	default:
		return "text/plain"
	}
}

// Extension returns the download file extension for a format
func Extension(format string) string {
	switch f := strings.ToLower(format); f {
	case models.TranscriptFormatJSON, models.TranscriptFormatCSV,
		models.TranscriptFormatSRT, models.TranscriptFormatVTT:
		return f
	default:
		return models.TranscriptFormatTXT
	}
}

func validate(segments []models.TranscriptSegment) error {
	if len(segments) == 0 {
		return &ValidationError{Message: "transcript has no segments"}
	}

	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return &ValidationError{Message: fmt.Sprintf("segment %d has empty text", i)}
		}
		if seg.Offset < 0 {
			return &ValidationError{Message: fmt.Sprintf("segment %d has negative offset", i)}
		}
		if seg.Duration < 0 {
			return &ValidationError{Message: fmt.Sprintf("segment %d has negative duration", i)}
		}
	}

	return nil
}

func renderTXT(segments []models.TranscriptSegment) string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = strings.TrimSpace(seg.Text)
	}
	return strings.Join(texts, "\n\n")
}

func renderJSON(segments []models.TranscriptSegment) (string, error) {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return string(data), nil
}

func renderCSV(segments []models.TranscriptSegment) string {
	var b strings.Builder
	b.WriteString("Start Time,Duration,Text\n")

	for _, seg := range segments {
		text := strings.ReplaceAll(seg.Text, "\"", "\"\"")
		text = strings.ReplaceAll(text, "\r\n", " ")
		text = strings.ReplaceAll(text, "\n", " ")
		b.WriteString(fmt.Sprintf("%s,%s,\"%s\"\n",
			Timestamp(float64(seg.Offset), false),
			Timestamp(float64(seg.Duration), false),
			text))
	}

	return b.String()
}

func renderSRT(segments []models.TranscriptSegment) string {
	var b strings.Builder

	for i, seg := range segments {
		start := float64(seg.Offset)
		end := float64(seg.Offset + seg.Duration)

		b.WriteString(fmt.Sprintf("%d\n", i+1))
		b.WriteString(fmt.Sprintf("%s --> %s\n", Timestamp(start, false), Timestamp(end, false)))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}

	return b.String()
}

func renderVTT(segments []models.TranscriptSegment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for _, seg := range segments {
		start := float64(seg.Offset)
		end := float64(seg.Offset + seg.Duration)

		b.WriteString(fmt.Sprintf("%s --> %s\n", Timestamp(start, true), Timestamp(end, true)))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}

	return b.String()
}

// Timestamp formats a seconds value as HH:MM:SS plus milliseconds.
// VTT separates millis with a dot, SRT and CSV with a comma. Hours are
// zero-padded to two digits but never wrap past 24.
func Timestamp(seconds float64, vtt bool) string {
	totalMillis := int64(math.Round(seconds * 1000))
	if totalMillis < 0 {
		totalMillis = 0
	}

	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000

	sep := ","
	if vtt {
		sep = "."
	}

	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, sep, millis)
}
