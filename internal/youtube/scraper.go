package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/transcript"
	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds YouTube client configuration
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
	WatchBaseURL   string // overridable for tests
	InnertubeURL   string // overridable for tests
	InnertubeKey   string
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.WatchBaseURL == "" {
		c.WatchBaseURL = "https://www.youtube.com"
	}
	if c.InnertubeURL == "" {
		c.InnertubeURL = "https://www.youtube.com/youtubei/v1/get_transcript"
	}
}

// Scraper retrieves captions by scraping the watch page for the
// caption track list and downloading the timedtext XML track
type Scraper struct {
	client    *http.Client
	userAgent string
	baseURL   string
}

// NewScraper creates a watch-page caption scraper
func NewScraper(cfg Config) *Scraper {
	cfg.applyDefaults()
	return &Scraper{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		userAgent: cfg.UserAgent,
		baseURL:   cfg.WatchBaseURL,
	}
}

// timedtext is the caption track XML document
type timedtext struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedtextRow `xml:"text"`
}

type timedtextRow struct {
	Start   string `xml:"start,attr"`
	Dur     string `xml:"dur,attr"`
	Content string `xml:",chardata"`
}

// FetchCaptions downloads the caption track for a bare video id or a
// full watch URL. Failures are classified into *transcript.SourceError
// kinds so the resolver can branch without inspecting message text.
func (s *Scraper) FetchCaptions(ctx context.Context, target string) ([]models.TranscriptSegment, error) {
	pageURL := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		pageURL = fmt.Sprintf("%s/watch?v=%s", s.baseURL, target)
	}

	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, &transcript.SourceError{
			Kind:    transcript.KindTransient,
			Message: "failed to fetch watch page",
			Err:     err,
		}
	}

	trackURL, err := s.captionTrackURL(body)
	if err != nil {
		return nil, err
	}

	track, err := s.get(ctx, trackURL)
	if err != nil {
		return nil, &transcript.SourceError{
			Kind:    transcript.KindTransient,
			Message: "failed to fetch caption track",
			Err:     err,
		}
	}

	return parseTimedtext(track)
}

func (s *Scraper) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// captionTrackURL locates the first caption track URL in the watch
// page. The page's playability markers decide the failure
// classification: the error messages carry the upstream's verbatim
// phrasing ("Transcript is disabled", "Video unavailable", "private")
// since downstream consumers match on those substrings.
func (s *Scraper) captionTrackURL(page string) (string, error) {
	parts := strings.Split(page, `"captions":`)
	if len(parts) <= 1 {
		switch {
		case strings.Contains(page, `class="g-recaptcha"`):
			return "", &transcript.SourceError{
				Kind:    transcript.KindRateLimited,
				Message: "YouTube is receiving too many requests from this address",
			}
		case strings.Contains(page, `"status":"LOGIN_REQUIRED"`):
			return "", &transcript.SourceError{
				Kind:    transcript.KindPrivate,
				Message: "Video is private",
			}
		case !strings.Contains(page, `"playabilityStatus":`):
			return "", &transcript.SourceError{
				Kind:    transcript.KindUnavailable,
				Message: "Video unavailable",
			}
		default:
			return "", &transcript.SourceError{
				Kind:    transcript.KindDisabled,
				Message: "Transcript is disabled on this video",
			}
		}
	}

	captionsJSON := strings.Split(parts[1], `,"videoDetails`)[0]
	marker := `"baseUrl":"`
	idx := strings.Index(captionsJSON, marker)
	if idx < 0 {
		return "", &transcript.SourceError{
			Kind:    transcript.KindDisabled,
			Message: "Transcript is disabled on this video",
		}
	}

	rest := captionsJSON[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", &transcript.SourceError{
			Kind:    transcript.KindTransient,
			Message: "malformed caption track list",
		}
	}

	// The baseUrl sits inside a JSON string, so ampersands arrive as
	// \u0026 (or occasionally &amp;)
	url := strings.ReplaceAll(rest[:end], `\u0026`, "&")
	url = strings.ReplaceAll(url, "&amp;", "&")
	return url, nil
}

// parseTimedtext converts the XML track into segments. Rows without
// any extractable text are skipped; nothing else is filtered.
func parseTimedtext(raw string) ([]models.TranscriptSegment, error) {
	var doc timedtext
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &transcript.SourceError{
			Kind:    transcript.KindTransient,
			Message: "failed to parse caption track",
			Err:     err,
		}
	}

	segments := make([]models.TranscriptSegment, 0, len(doc.Texts))
	for _, row := range doc.Texts {
		if row.Content == "" {
			continue
		}

		start, _ := strconv.ParseFloat(row.Start, 64)
		dur, _ := strconv.ParseFloat(row.Dur, 64)

		segments = append(segments, models.TranscriptSegment{
			Text:     html.UnescapeString(row.Content),
			Offset:   int(math.Floor(start)),
			Duration: int(math.Floor(dur)),
		})
	}

	return segments, nil
}
