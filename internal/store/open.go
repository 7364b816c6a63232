package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/db"
	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// Open builds the backend selected by cfg.Store.Backend, wrapped with metrics recording.
// The returned cleanup releases the backend and any pool it opened.
func Open(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (Store, func(), error) {
	log := logger.Named("store")

	var (
		backend Store
		pool    *pgxpool.Pool
	)

	switch cfg.Store.Backend {
	case config.StoreBackendBadger:
		s, err := OpenBadger(cfg.Store.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		backend = s
		log.Info("Opened badger snapshot store", zap.String("dir", cfg.Store.BadgerDir))

	case config.StoreBackendPostgres:
		p, err := db.NewPool(ctx, db.FromAppConfig(cfg.Database))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		pool = p
		backend = NewPostgresStore(pool)
		log.Info("Connected postgres snapshot store",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)

	case config.StoreBackendMemory:
		backend = NewMemoryStore()
		log.Warn("Using in-memory snapshot store, snapshots will not survive a restart")

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	cleanup := func() {
		if err := backend.Close(); err != nil {
			log.Error("Failed to close snapshot store", zap.Error(err))
		}
		db.Close(pool)
	}

	return NewInstrumented(backend, recorder), cleanup, nil
}
