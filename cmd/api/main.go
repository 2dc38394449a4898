package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/transcriptd/internal/cache"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/config"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/logging"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/metrics"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/middleware"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/pacing"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/tracing"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/transcript"
	"github.com/therealutkarshpriyadarshi/transcriptd/internal/youtube"
)

type API struct {
	resolver        Resolver
	cache           TranscriptCache
	pacer           *pacing.Pacer
	logger          *logging.Logger
	requestDeadline time.Duration
	cacheTTL        time.Duration
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	// Initialize cache. The service works without Redis; resolution
	// just loses the read-through layer.
	var transcriptCache TranscriptCache
	if cfg.Cache.Enabled {
		rc, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("Cache unavailable, continuing without it")
		} else {
			transcriptCache = rc
			defer rc.Close()
		}
	}

	// Build the resolver over both caption sources
	ytCfg := youtube.Config{
		UserAgent:      cfg.YouTube.UserAgent,
		RequestTimeout: cfg.YouTube.RequestTimeout,
		InnertubeKey:   cfg.YouTube.InnertubeKey,
	}
	pacer := pacing.NewPacer(pacing.Config{
		BaseDelay:  cfg.Pacing.BaseDelay,
		MaxDelay:   cfg.Pacing.MaxDelay,
		Multiplier: cfg.Pacing.Multiplier,
	})
	resolver := transcript.NewResolver(
		youtube.NewScraper(ytCfg),
		youtube.NewInnertubeClient(ytCfg),
		pacer,
		logger,
	)

	api := &API{
		resolver:        resolver,
		cache:           transcriptCache,
		pacer:           pacer,
		logger:          logger,
		requestDeadline: cfg.Server.RequestDeadline,
		cacheTTL:        cfg.Cache.TTL,
	}

	// Start metrics server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Infof("Starting metrics server on port %d", cfg.Metrics.Port)
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(ctx)
		}()
	}

	// Setup router
	router := setupRouter(api, logger, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, logger *logging.Logger, rps, burst int) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(rps, burst)))

	// Health check
	router.GET("/health", api.healthCheck)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/transcript/:videoId", api.getTranscript)
		v1.GET("/transcript/:videoId/download", api.downloadTranscript)
		v1.DELETE("/transcript/:videoId", api.invalidateTranscript)
		v1.GET("/video/:videoId", api.getVideoInfo)
		v1.GET("/stats", api.getStats)
	}

	return router
}
