package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/transcriptd/pkg/models"
)

// Cache provides short-lived transcript caching using Redis. Entries
// always carry a TTL; nothing here is durable storage.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Transcript Cache Operations

// SetTranscript caches a resolved segment list for a video
func (c *Cache) SetTranscript(ctx context.Context, videoID string, segments []models.TranscriptSegment, ttl time.Duration) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	key := fmt.Sprintf("transcript:%s", videoID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetTranscript retrieves a cached segment list. A nil result with a
// nil error is a cache miss.
func (c *Cache) GetTranscript(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	key := fmt.Sprintf("transcript:%s", videoID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get transcript from cache: %w", err)
	}

	var segments []models.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return segments, nil
}

// DeleteTranscript removes a cached transcript along with its
// rendered outputs
func (c *Cache) DeleteTranscript(ctx context.Context, videoID string) error {
	keys := []string{fmt.Sprintf("transcript:%s", videoID)}
	for _, format := range []string{
		models.TranscriptFormatTXT,
		models.TranscriptFormatJSON,
		models.TranscriptFormatCSV,
		models.TranscriptFormatSRT,
		models.TranscriptFormatVTT,
	} {
		keys = append(keys, fmt.Sprintf("rendered:%s:%s", videoID, format))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Rendered Output Cache Operations

// SetRendered caches a rendered transcript for a video/format pair
func (c *Cache) SetRendered(ctx context.Context, videoID, format, rendered string, ttl time.Duration) error {
	key := fmt.Sprintf("rendered:%s:%s", videoID, format)
	return c.client.Set(ctx, key, rendered, ttl).Err()
}

// GetRendered retrieves a cached rendered transcript. An empty string
// with a nil error is a cache miss.
func (c *Cache) GetRendered(ctx context.Context, videoID, format string) (string, error) {
	key := fmt.Sprintf("rendered:%s:%s", videoID, format)
	rendered, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get rendered transcript from cache: %w", err)
	}
	return rendered, nil
}

// Stats Cache Operations

// IncrementStat increments a statistic counter
func (c *Cache) IncrementStat(ctx context.Context, stat string) error {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Incr(ctx, key).Err()
}

// GetStat retrieves a statistic value. A counter that was never
// incremented reads as zero.
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	key := fmt.Sprintf("stats:%s", stat)
	n, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	// Increment counter
	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	// Check if limit exceeded
	return count <= limit, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
