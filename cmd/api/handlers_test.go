package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/format"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/logging"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/transcript"
	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// MockResolver is a mock implementation of Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TranscriptSegment), args.Error(1)
}

// MockCache is a mock implementation of TranscriptCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetTranscript(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TranscriptSegment), args.Error(1)
}

func (m *MockCache) SetTranscript(ctx context.Context, videoID string, segments []models.TranscriptSegment, ttl time.Duration) error {
	args := m.Called(ctx, videoID, segments, ttl)
	return args.Error(0)
}

func (m *MockCache) DeleteTranscript(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *MockCache) IncrementStat(ctx context.Context, stat string) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockCache) GetStat(ctx context.Context, stat string) (int64, error) {
	args := m.Called(ctx, stat)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) GetRendered(ctx context.Context, videoID, format string) (string, error) {
	args := m.Called(ctx, videoID, format)
	return args.String(0), args.Error(1)
}

func (m *MockCache) SetRendered(ctx context.Context, videoID, format, rendered string, ttl time.Duration) error {
	args := m.Called(ctx, videoID, format, rendered, ttl)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func setupTestAPI(resolver Resolver, cache TranscriptCache) (*API, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	api := &API{
		resolver:        resolver,
		cache:           cache,
		logger:          logging.NewNopLogger(),
		requestDeadline: 5 * time.Second,
		cacheTTL:        time.Minute,
	}

	router := gin.New()
	router.GET("/health", api.healthCheck)
	v1 := router.Group("/api/v1")
	v1.GET("/transcript/:videoId", api.getTranscript)
	v1.GET("/transcript/:videoId/download", api.downloadTranscript)
	v1.DELETE("/transcript/:videoId", api.invalidateTranscript)
	v1.GET("/video/:videoId", api.getVideoInfo)
	v1.GET("/stats", api.getStats)

	return api, router
}

// allowResolve satisfies the rate-limit and stat expectations of a
// cache-backed resolution that is allowed to reach upstream
func allowResolve(cache *MockCache, videoID string) {
	cache.On("CheckRateLimit", mock.Anything, "resolve:"+videoID, int64(resolveAttemptLimit), resolveAttemptWindow).Return(true, nil)
	cache.On("IncrementStat", mock.Anything, mock.Anything).Return(nil)
}

func testSegments() []models.TranscriptSegment {
	return []models.TranscriptSegment{
		{Text: "Hello world", Offset: 0, Duration: 2},
		{Text: "Second", Offset: 2, Duration: 3},
	}
}

func TestGetTranscript_Success(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success    bool                       `json:"success"`
		VideoID    string                     `json:"videoId"`
		Transcript []models.TranscriptSegment `json:"transcript"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "dQw4w9WgXcQ", body.VideoID)
	assert.Len(t, body.Transcript, 2)
}

func TestGetTranscript_InvalidID(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	for _, id := range []string{"short", "way-too-long-to-be-valid", "bad%20chars!"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/transcript/"+id, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "id %q", id)
	}

	resolver.AssertNotCalled(t, "Resolve")
}

func TestGetTranscript_NotFound(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(
		nil, &transcript.NotFoundError{VideoID: "dQw4w9WgXcQ"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "dQw4w9WgXcQ")
}

func TestGetTranscript_PermanentUnavailable(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(
		nil, &transcript.PermanentError{Kind: transcript.KindUnavailable, VideoID: "dQw4w9WgXcQ", Message: "Video is unavailable"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTranscript_UpstreamTimeout(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(
		nil, &transcript.UpstreamTimeoutError{VideoID: "dQw4w9WgXcQ"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestGetTranscript_CacheHitSkipsResolver(t *testing.T) {
	resolver := new(MockResolver)
	cache := new(MockCache)
	_, router := setupTestAPI(resolver, cache)

	cache.On("GetTranscript", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resolver.AssertNotCalled(t, "Resolve")
}

func TestGetTranscript_CacheMissPopulatesCache(t *testing.T) {
	resolver := new(MockResolver)
	cache := new(MockCache)
	_, router := setupTestAPI(resolver, cache)

	cache.On("GetTranscript", mock.Anything, "dQw4w9WgXcQ").Return(nil, nil)
	allowResolve(cache, "dQw4w9WgXcQ")
	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)
	cache.On("SetTranscript", mock.Anything, "dQw4w9WgXcQ", testSegments(), time.Minute).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	cache.AssertCalled(t, "SetTranscript", mock.Anything, "dQw4w9WgXcQ", testSegments(), time.Minute)
}

func TestGetTranscript_ResolveBudgetExhausted(t *testing.T) {
	resolver := new(MockResolver)
	cache := new(MockCache)
	_, router := setupTestAPI(resolver, cache)

	cache.On("GetTranscript", mock.Anything, "dQw4w9WgXcQ").Return(nil, nil)
	cache.On("CheckRateLimit", mock.Anything, "resolve:dQw4w9WgXcQ", int64(resolveAttemptLimit), resolveAttemptWindow).Return(false, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resolver.AssertNotCalled(t, "Resolve")
}

func TestInvalidateTranscript(t *testing.T) {
	cache := new(MockCache)
	_, router := setupTestAPI(new(MockResolver), cache)

	cache.On("DeleteTranscript", mock.Anything, "dQw4w9WgXcQ").Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	cache.AssertCalled(t, "DeleteTranscript", mock.Anything, "dQw4w9WgXcQ")
}

func TestInvalidateTranscript_InvalidID(t *testing.T) {
	cache := new(MockCache)
	_, router := setupTestAPI(new(MockResolver), cache)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/v1/transcript/short", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	cache.AssertNotCalled(t, "DeleteTranscript")
}

func TestInvalidateTranscript_NoCache(t *testing.T) {
	_, router := setupTestAPI(new(MockResolver), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/v1/transcript/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetStats(t *testing.T) {
	cache := new(MockCache)
	_, router := setupTestAPI(new(MockResolver), cache)

	cache.On("GetStat", mock.Anything, statTranscriptsResolved).Return(int64(7), nil)
	cache.On("GetStat", mock.Anything, statDownloads).Return(int64(3), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool             `json:"success"`
		Stats   map[string]int64 `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(7), body.Stats[statTranscriptsResolved])
	assert.Equal(t, int64(3), body.Stats[statDownloads])
}

func TestDownloadTranscript_SRT(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ/download?format=srt", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-subrip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dQw4w9WgXcQ.srt"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "00:00:00,000 --> 00:00:02,000")
}

func TestDownloadTranscript_DefaultsToTXT(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ/download", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dQw4w9WgXcQ.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Hello world\n\nSecond", w.Body.String())
}

func TestDownloadTranscript_UnknownFormatFallsBack(t *testing.T) {
	resolver := new(MockResolver)
	_, router := setupTestAPI(resolver, nil)

	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ/download?format=docx", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dQw4w9WgXcQ.txt"`, w.Header().Get("Content-Disposition"))
}

func TestDownloadTranscript_RenderedCacheHit(t *testing.T) {
	resolver := new(MockResolver)
	cache := new(MockCache)
	_, router := setupTestAPI(resolver, cache)

	cache.On("GetRendered", mock.Anything, "dQw4w9WgXcQ", "vtt").Return("WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nHello world\n\n", nil)
	cache.On("IncrementStat", mock.Anything, statDownloads).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ/download?format=vtt", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/vtt", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "WEBVTT")
	resolver.AssertNotCalled(t, "Resolve")
}

func TestDownloadTranscript_RenderedCacheMissPopulates(t *testing.T) {
	resolver := new(MockResolver)
	cache := new(MockCache)
	_, router := setupTestAPI(resolver, cache)

	cache.On("GetRendered", mock.Anything, "dQw4w9WgXcQ", "srt").Return("", nil)
	cache.On("GetTranscript", mock.Anything, "dQw4w9WgXcQ").Return(nil, nil)
	allowResolve(cache, "dQw4w9WgXcQ")
	resolver.On("Resolve", mock.Anything, "dQw4w9WgXcQ").Return(testSegments(), nil)
	cache.On("SetTranscript", mock.Anything, "dQw4w9WgXcQ", testSegments(), time.Minute).Return(nil)
	cache.On("SetRendered", mock.Anything, "dQw4w9WgXcQ", "srt", mock.Anything, time.Minute).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/transcript/dQw4w9WgXcQ/download?format=srt", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cache.AssertCalled(t, "SetRendered", mock.Anything, "dQw4w9WgXcQ", "srt", mock.Anything, time.Minute)
}

func TestGetVideoInfo(t *testing.T) {
	_, router := setupTestAPI(new(MockResolver), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/video/dQw4w9WgXcQ", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool             `json:"success"`
		Video   models.VideoInfo `json:"video"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "dQw4w9WgXcQ", body.Video.VideoID)
	assert.Equal(t, "YouTube Video (dQw4w9WgXcQ)", body.Video.Title)
	assert.Equal(t, 0, body.Video.Duration)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", body.Video.ThumbnailURL)
}

func TestHealthCheck(t *testing.T) {
	cache := new(MockCache)
	cache.On("Ping", mock.Anything).Return(nil)

	_, router := setupTestAPI(new(MockResolver), cache)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", &transcript.InvalidInputError{Message: "video id is required"}, http.StatusBadRequest},
		{"render validation", &format.ValidationError{Message: "transcript has no segments"}, http.StatusBadRequest},
		{"permanent", &transcript.PermanentError{Message: "Video is private"}, http.StatusNotFound},
		{"not found", &transcript.NotFoundError{VideoID: "x"}, http.StatusNotFound},
		{"timeout", &transcript.UpstreamTimeoutError{VideoID: "x"}, http.StatusGatewayTimeout},
		{"unavailable phrase", errors.New("Video unavailable"), http.StatusNotFound},
		{"live phrase", errors.New("Transcripts are not available for live videos"), http.StatusBadRequest},
		{"shorts phrase", errors.New("Transcripts are not supported for Shorts"), http.StatusBadRequest},
		{"rate limit phrase", errors.New("YouTube is receiving too many requests"), http.StatusTooManyRequests},
		{"invalid format phrase", errors.New("Invalid format requested"), http.StatusBadRequest},
		{"unknown", errors.New("something exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}
