package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// MemoryStore keeps snapshots in process memory. Stored and returned snapshots are copies.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*models.Snapshot)}
}

func (s *MemoryStore) Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[snapshot.SnapshotDate]; exists && !overwrite {
		return fmt.Errorf("save snapshot %s: %w", snapshot.SnapshotDate, ErrDuplicateDate)
	}

	s.snapshots[snapshot.SnapshotDate] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[date]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSnapshot(snapshot), nil
}

// GetLatest breaks capture timestamp ties by the later date.
func (s *MemoryStore) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Snapshot
	for _, snapshot := range s.snapshots {
		if latest == nil ||
			snapshot.CaptureTimestamp > latest.CaptureTimestamp ||
			(snapshot.CaptureTimestamp == latest.CaptureTimestamp && snapshot.SnapshotDate > latest.SnapshotDate) {
			latest = snapshot
		}
	}

	if latest == nil {
		return nil, ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

func (s *MemoryStore) ListDates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.snapshots))
	for date := range s.snapshots {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *MemoryStore) Delete(ctx context.Context, date string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[date]; !ok {
		return false, nil
	}
	delete(s.snapshots, date)
	return true, nil
}

func (s *MemoryStore) GetStorageStats(ctx context.Context) (*models.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.StorageStats{TotalSnapshots: len(s.snapshots)}
	for date, snapshot := range s.snapshots {
		if stats.OldestDate == "" || date < stats.OldestDate {
			stats.OldestDate = date
		}
		if date > stats.LatestDate {
			stats.LatestDate = date
		}
		stats.StorageUsageBytes += serializedSize(snapshot)
	}
	return stats, nil
}

func (s *MemoryStore) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = make(map[string]*models.Snapshot)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
