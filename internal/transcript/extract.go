package transcript

import (
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// The renderer-response schema is undocumented and has shifted between
// client versions, so segment lists are located by trying a fixed list
// of known nesting conventions in order. First match wins; an
// unrecognized shape is a terminal outcome, not an empty transcript.
var segmentListRules = []func(any) ([]any, bool){
	func(raw any) ([]any, bool) { return listAtPath(raw, "body", "content") },
	func(raw any) ([]any, bool) {
		return listAtPath(raw, "transcript", "content", "body", "initial_segments")
	},
	func(raw any) ([]any, bool) { return listAtPath(raw, "content") },
	func(raw any) ([]any, bool) {
		list, ok := raw.([]any)
		return list, ok
	},
}

// extractSegments locates and converts the segment list inside a
// decoded renderer response. Entries that are not recognizable caption
// segment records are skipped. The bool result is false when no rule
// matched the response shape.
func extractSegments(raw any) ([]models.TranscriptSegment, bool) {
	var list []any
	matched := false
	for _, rule := range segmentListRules {
		if l, ok := rule(raw); ok {
			list = l
			matched = true
			break
		}
	}
	if !matched {
		return nil, false
	}

	segments := make([]models.TranscriptSegment, 0, len(list))
	for _, entry := range list {
		if seg, ok := convertSegment(entry); ok {
			segments = append(segments, seg)
		}
	}

	return segments, true
}

// convertSegment turns one renderer entry into a normalized segment.
// Timing arrives in milliseconds and is floor-divided into whole
// seconds; entries whose text is empty after trimming are dropped.
func convertSegment(entry any) (models.TranscriptSegment, bool) {
	node, ok := entry.(map[string]any)
	if !ok {
		return models.TranscriptSegment{}, false
	}

	if t, _ := node["type"].(string); t != "TranscriptSegment" {
		return models.TranscriptSegment{}, false
	}

	text := strings.TrimSpace(snippetText(node["snippet"]))
	if text == "" {
		return models.TranscriptSegment{}, false
	}

	startMs, ok := asMillis(node["start_ms"])
	if !ok {
		return models.TranscriptSegment{}, false
	}
	endMs, ok := asMillis(node["end_ms"])
	if !ok {
		return models.TranscriptSegment{}, false
	}

	offset := startMs / 1000
	duration := (endMs - startMs) / 1000
	if offset < 0 {
		offset = 0
	}
	if duration < 0 {
		duration = 0
	}

	return models.TranscriptSegment{Text: text, Offset: int(offset), Duration: int(duration)}, true
}

// snippetText reads snippet.text, falling back to concatenating
// snippet.runs[].text
func snippetText(snippet any) string {
	node, ok := snippet.(map[string]any)
	if !ok {
		return ""
	}

	if text, ok := node["text"].(string); ok && text != "" {
		return text
	}

	runs, ok := node["runs"].([]any)
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, run := range runs {
		if m, ok := run.(map[string]any); ok {
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

// asMillis accepts the numeric-string timing fields, tolerating plain
// JSON numbers as well
func asMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case string:
		ms, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(n, 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return ms, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func listAtPath(raw any, path ...string) ([]any, bool) {
	current := raw
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}

	list, ok := current.([]any)
	return list, ok
}
