package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/handler"
	"github.com/ad-tracker/performance-snapshots-go/internal/merge"
	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/parser"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
	"github.com/ad-tracker/performance-snapshots-go/internal/service/youtube"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New(cfg.Metrics)

	snapshotStore, closeStore, err := store.Open(ctx, cfg, recorder)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer closeStore()

	publisher, err := service.NewEventPublisher(&cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("connect event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Log.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	snapshots := service.NewSnapshotService(
		snapshotStore,
		parser.New(cfg.Snapshot.MaxPasteSize),
		service.NewSnapshotCache(cfg.Cache),
		publisher,
		recorder,
	)

	engine := merge.NewEngine(snapshots, recorder, cfg.Snapshot.FuzzyThreshold)

	var videos service.VideoSource
	if cfg.YouTube.APIKey != "" {
		client, err := youtube.NewClient(ctx, youtube.ClientConfig{
			APIKey:     cfg.YouTube.APIKey,
			BaseURL:    cfg.YouTube.BaseURL,
			MaxResults: cfg.YouTube.MaxResults,
		})
		if err != nil {
			logger.Log.Warn("Failed to initialize YouTube client, channel performance will not be available",
				zap.Error(err),
			)
		} else {
			defer func() { _ = client.Close() }()
			videos = client
			logger.Log.Info("YouTube client initialized")
		}
	} else {
		logger.Log.Info("YouTube API key not configured, channel performance will not be available")
	}

	if len(cfg.Server.APIKeys) == 0 {
		logger.Log.Warn("No API keys configured - /api/v1 endpoints will reject all requests")
	}

	gin.SetMode(gin.ReleaseMode)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	router := handler.NewRouter(handler.RouterConfig{
		Snapshots:   snapshots,
		Performance: service.NewPerformanceService(engine, videos),
		Recorder:    recorder,
		APIKeys:     cfg.Server.APIKeys,
		MetricsPath: metricsPath,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("storeBackend", cfg.Store.Backend),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Bool("events", cfg.RabbitMQ.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
		if err := server.Close(); err != nil {
			logger.Log.Error("Failed to close server", zap.Error(err))
		}
		return err
	}

	logger.Log.Info("Server stopped gracefully")
	return nil
}
