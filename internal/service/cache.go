package service

import (
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

const latestCacheKey = "latest"

// SnapshotCache is a read-through cache of decoded snapshots, keyed by date.
type SnapshotCache interface {
	Get(key string) (*models.Snapshot, bool)
	Set(key string, snapshot *models.Snapshot)
	Delete(keys ...string)
	Clear()
}

// FreeCache stores snapshots as JSON in a fixed-size freecache arena.
type FreeCache struct {
	cache *freecache.Cache
	ttl   int
}

// NewSnapshotCache returns a freecache-backed cache, or a no-op cache when disabled.
func NewSnapshotCache(cfg config.CacheConfig) SnapshotCache {
	if !cfg.Enabled || cfg.SizeMB <= 0 {
		logger.Named("cache").Info("Snapshot cache disabled")
		return noopCache{}
	}

	ttl := max(int(cfg.TTL/time.Second), 1)

	logger.Named("cache").Info("Snapshot cache initialized",
		zap.Int("sizeMb", cfg.SizeMB),
		zap.Int("ttlSeconds", ttl),
	)

	return &FreeCache{
		cache: freecache.NewCache(cfg.SizeMB * 1024 * 1024),
		ttl:   ttl,
	}
}

func (c *FreeCache) Get(key string) (*models.Snapshot, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}

// Set ignores snapshots too large for the arena; they are simply read from the store.
func (c *FreeCache) Set(key string, snapshot *models.Snapshot) {
	val, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	_ = c.cache.Set([]byte(key), val, c.ttl)
}

func (c *FreeCache) Delete(keys ...string) {
	for _, key := range keys {
		c.cache.Del([]byte(key))
	}
}

func (c *FreeCache) Clear() {
	c.cache.Clear()
}

type noopCache struct{}

func (noopCache) Get(_ string) (*models.Snapshot, bool) { return nil, false }
func (noopCache) Set(_ string, _ *models.Snapshot)      {}
func (noopCache) Delete(_ ...string)                    {}
func (noopCache) Clear()                                {}
