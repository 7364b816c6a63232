package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

func TestNewSnapshotCache_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CacheConfig
	}{
		{name: "disabled", cfg: config.CacheConfig{Enabled: false, SizeMB: 16, TTL: time.Minute}},
		{name: "zero size", cfg: config.CacheConfig{Enabled: true, SizeMB: 0, TTL: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewSnapshotCache(tt.cfg)
			assert.IsType(t, noopCache{}, cache)

			cache.Set("2025-03-01", newServiceSnapshot("2025-03-01", 1))
			_, ok := cache.Get("2025-03-01")
			assert.False(t, ok)
		})
	}
}

func TestFreeCache(t *testing.T) {
	cache := NewSnapshotCache(config.CacheConfig{Enabled: true, SizeMB: 1, TTL: time.Minute})
	require.IsType(t, &FreeCache{}, cache)

	snapshot := newServiceSnapshot("2025-03-01", 1740826800000)

	_, ok := cache.Get("2025-03-01")
	assert.False(t, ok)

	cache.Set("2025-03-01", snapshot)
	cache.Set(latestCacheKey, snapshot)

	got, ok := cache.Get("2025-03-01")
	require.True(t, ok)
	assert.Equal(t, snapshot, got)
	assert.NotSame(t, snapshot, got)

	cache.Delete("2025-03-01")
	_, ok = cache.Get("2025-03-01")
	assert.False(t, ok)
	_, ok = cache.Get(latestCacheKey)
	assert.True(t, ok)

	cache.Clear()
	_, ok = cache.Get(latestCacheKey)
	assert.False(t, ok)
}

func TestFreeCache_MinimumTTL(t *testing.T) {
	cache := NewSnapshotCache(config.CacheConfig{Enabled: true, SizeMB: 1, TTL: 10 * time.Millisecond})
	fc, ok := cache.(*FreeCache)
	require.True(t, ok)
	assert.Equal(t, 1, fc.ttl)
}

func newServiceSnapshot(date string, capturedAt int64, titles ...string) *models.Snapshot {
	if len(titles) == 0 {
		titles = []string{"Video A"}
	}
	rows := make([]models.SnapshotRow, 0, len(titles))
	for i, title := range titles {
		impressions := int64(1000 * (i + 1))
		ctr := 0.05
		rows = append(rows, models.SnapshotRow{
			Title:       title,
			Views:       int64(100 * (i + 1)),
			Impressions: &impressions,
			CTR:         &ctr,
		})
	}
	return &models.Snapshot{
		SnapshotDate:     date,
		CaptureTimestamp: capturedAt,
		Data:             rows,
		Source:           models.SnapshotSourceManualPaste,
	}
}
