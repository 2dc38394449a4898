package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	YouTube   YouTubeConfig
	Pacing    PacingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestDeadline time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds transcript cache configuration
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// YouTubeConfig holds upstream client configuration
type YouTubeConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	InnertubeKey   string
}

// PacingConfig holds outbound pacing configuration
type PacingConfig struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// RateLimitConfig holds HTTP rate limiting configuration
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.requestDeadline", "60s")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "15m")

	// YouTube defaults
	viper.SetDefault("youtube.userAgent", "")
	viper.SetDefault("youtube.requestTimeout", "15s")
	viper.SetDefault("youtube.innertubeKey", "")

	// Pacing defaults
	viper.SetDefault("pacing.baseDelay", "500ms")
	viper.SetDefault("pacing.maxDelay", "5s")
	viper.SetDefault("pacing.multiplier", 1.5)

	// Rate limit defaults
	viper.SetDefault("ratelimit.rps", 10)
	viper.SetDefault("ratelimit.burst", 20)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "transcriptd")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)
}
