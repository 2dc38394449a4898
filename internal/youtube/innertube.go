package youtube

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	innertubeClientName    = "WEB"
	innertubeClientVersion = "2.20240605.02.00"
)

// InnertubeClient retrieves transcripts through the internal renderer
// endpoint. The response schema is undocumented and version-dependent,
// so the decoded body is returned as-is for the resolver's extraction
// rules to pick apart.
type InnertubeClient struct {
	client    *http.Client
	endpoint  string
	key       string
	userAgent string
}

// NewInnertubeClient creates a renderer-endpoint transcript client
func NewInnertubeClient(cfg Config) *InnertubeClient {
	cfg.applyDefaults()
	return &InnertubeClient{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:  cfg.InnertubeURL,
		key:       cfg.InnertubeKey,
		userAgent: cfg.UserAgent,
	}
}

type innertubeRequest struct {
	Context innertubeContext `json:"context"`
	Params  string           `json:"params"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
}

// FetchTranscript posts a get_transcript request and returns the
// decoded JSON response
func (c *InnertubeClient) FetchTranscript(ctx context.Context, videoID string) (any, error) {
	payload := innertubeRequest{
		Context: innertubeContext{
			Client: innertubeClient{
				ClientName:    innertubeClientName,
				ClientVersion: innertubeClientVersion,
				HL:            "en",
			},
		},
		Params: transcriptParams(videoID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal innertube request: %w", err)
	}

	url := c.endpoint
	if c.key != "" {
		url = fmt.Sprintf("%s?key=%s", c.endpoint, c.key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("innertube request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube returned status %d", resp.StatusCode)
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode innertube response: %w", err)
	}

	return decoded, nil
}

// transcriptParams builds the base64 request token wrapping the video
// id (protobuf field 1, length-delimited)
func transcriptParams(videoID string) string {
	buf := make([]byte, 0, len(videoID)+2)
	buf = append(buf, 0x0a, byte(len(videoID)))
	buf = append(buf, videoID...)
	return base64.StdEncoding.EncodeToString(buf)
}
