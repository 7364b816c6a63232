package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/middleware"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// RouterConfig wires services into the HTTP API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RouterConfig struct {
	Snapshots   *service.SnapshotService
	Performance *service.PerformanceService
	Recorder    metrics.Recorder
	APIKeys     []string
	MetricsPath string
}

// NewRouter builds the gin engine with health, metrics and authenticated API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.Noop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.Named("http"), recorder))

	healthHandler := NewHealthHandler(cfg.Snapshots)
	router.GET("/health/live", healthHandler.LivenessProbe)
	router.GET("/health/ready", healthHandler.ReadinessProbe)

	if cfg.MetricsPath != "" {
		router.GET(cfg.MetricsPath, gin.WrapH(recorder.Handler()))
	}

	auth := middleware.NewAPIKeyAuth(cfg.APIKeys, nil)
	api := router.Group("/api/v1", auth.Handler())

	snapshotHandler := NewSnapshotHandler(cfg.Snapshots)
	snapshots := api.Group("/snapshots")
	{
		snapshots.POST("/preview", snapshotHandler.Preview)
		snapshots.POST("", snapshotHandler.Save)
		snapshots.GET("", snapshotHandler.List)
		snapshots.DELETE("", snapshotHandler.DeleteAll)
		snapshots.GET("/latest", snapshotHandler.Latest)
		snapshots.GET("/stats", snapshotHandler.Stats)
		snapshots.GET("/:date", snapshotHandler.Get)
		snapshots.GET("/:date/deltas", snapshotHandler.Deltas)
		snapshots.DELETE("/:date", snapshotHandler.Delete)
	}

	if cfg.Performance != nil {
		performanceHandler := NewPerformanceHandler(cfg.Performance)
		performance := api.Group("/performance")
		{
			performance.POST("/merge", performanceHandler.Merge)
			performance.GET("/channels/:channelId", performanceHandler.Channel)
		}
	}

	return router
}
