package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
)

type recordingPublisher struct {
	mu      sync.Mutex
	events  []*SnapshotEvent
	failing bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event *SnapshotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) IsHealthy() bool { return !p.failing }
func (p *recordingPublisher) Close() error    { return nil }

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	actions := make([]string, 0, len(p.events))
	for _, e := range p.events {
		actions = append(actions, e.Action)
	}
	return actions
}

// failingStore fails writes and serves reads from the embedded store.
type failingStore struct {
	store.Store
	err error
}

func (s failingStore) Save(context.Context, *models.Snapshot, bool) error { return s.err }
func (s failingStore) Delete(context.Context, string) (bool, error)       { return false, s.err }
func (s failingStore) ClearAll(context.Context) error                     { return s.err }

// unreadableStore fails every read.
type unreadableStore struct {
	store.Store
	err error
}

func (s unreadableStore) Get(context.Context, string) (*models.Snapshot, error)         { return nil, s.err }
func (s unreadableStore) GetLatest(context.Context) (*models.Snapshot, error)           { return nil, s.err }
func (s unreadableStore) ListDates(context.Context) ([]string, error)                   { return nil, s.err }
func (s unreadableStore) GetStorageStats(context.Context) (*models.StorageStats, error) { return nil, s.err }

// countingStore counts reads that reach the backend.
type countingStore struct {
	store.Store
	gets int
}

func (s *countingStore) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	s.gets++
	return s.Store.Get(ctx, date)
}

// racingStore runs afterRead once, after the backend answered a GetLatest.
type racingStore struct {
	store.Store
	afterRead func()
}

func (s *racingStore) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := s.Store.GetLatest(ctx)
	if s.afterRead != nil {
		hook := s.afterRead
		s.afterRead = nil
		hook()
	}
	return snapshot, err
}

func newTestSnapshotService(t *testing.T) (*SnapshotService, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}
	svc := NewSnapshotService(store.NewMemoryStore(), nil, nil, publisher, nil)
	return svc, publisher
}

func TestNewSnapshotService_Defaults(t *testing.T) {
	svc := NewSnapshotService(store.NewMemoryStore(), nil, nil, nil, nil)

	require.NotNil(t, svc)
	assert.NotNil(t, svc.parser)
	assert.IsType(t, noopCache{}, svc.cache)
	assert.IsType(t, NoopPublisher{}, svc.publisher)
	assert.True(t, svc.PublisherHealthy())
}

func TestSnapshotService_Save(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)
	ctx := context.Background()

	snapshot := newServiceSnapshot("2025-03-01", 1740826800000, "Video A", "Video B")
	snapshot.Source = ""

	result := svc.Save(ctx, snapshot, false)

	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.Error)
	assert.Equal(t, models.SnapshotSourceManualPaste, result.Snapshot.Source)

	got, err := svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Len(t, got.Data, 2)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, EventSnapshotSaved, event.Action)
	assert.Equal(t, "2025-03-01", event.SnapshotDate)
	assert.Equal(t, 2, event.Rows)
	assert.False(t, event.Overwrite)
}

func TestSnapshotService_Save_Duplicate(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 1, "Video A"), false).Success)

	result := svc.Save(ctx, newServiceSnapshot("2025-03-01", 2, "Video B"), false)

	assert.False(t, result.Success)
	assert.True(t, result.Duplicate)
	assert.Contains(t, result.Error, "2025-03-01")

	got, err := svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Video A", got.Data[0].Title)
	assert.Equal(t, []string{EventSnapshotSaved}, publisher.actions())
}

func TestSnapshotService_Save_Overwrite(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 1, "Video A"), false).Success)

	result := svc.Save(ctx, newServiceSnapshot("2025-03-01", 2, "Video B"), true)
	require.True(t, result.Success, result.Error)

	got, err := svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Video B", got.Data[0].Title)

	require.Len(t, publisher.events, 2)
	assert.True(t, publisher.events[1].Overwrite)
}

func TestSnapshotService_Save_Invalid(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)

	snapshot := newServiceSnapshot("03/01/2025", 0, "Video A")
	result := svc.Save(context.Background(), snapshot, false)

	assert.False(t, result.Success)
	assert.True(t, result.Invalid)
	assert.Contains(t, result.Details, "snapshotDate must be a date in YYYY-MM-DD format")
	assert.Contains(t, result.Details, "captureTimestamp is required")
	assert.Empty(t, publisher.events)

	dates, err := svc.ListDates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestSnapshotService_Save_CarriesDuplicateTitleWarning(t *testing.T) {
	svc, _ := newTestSnapshotService(t)

	snapshot := newServiceSnapshot("2025-03-01", 1, "Video A", "video a")
	result := svc.Save(context.Background(), snapshot, false)

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "duplicate title")
}

func TestSnapshotService_Save_StoreFailure(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewSnapshotService(failingStore{Store: store.NewMemoryStore(), err: errors.New("disk full")}, nil, nil, publisher, nil)

	result := svc.Save(context.Background(), newServiceSnapshot("2025-03-01", 1), false)

	assert.False(t, result.Success)
	assert.False(t, result.Duplicate)
	assert.False(t, result.Invalid)
	assert.Contains(t, result.Error, "disk full")
	assert.Empty(t, publisher.events)
}

func TestSnapshotService_Save_PublishFailureDoesNotFail(t *testing.T) {
	publisher := &recordingPublisher{failing: true}
	svc := NewSnapshotService(store.NewMemoryStore(), nil, nil, publisher, nil)

	result := svc.Save(context.Background(), newServiceSnapshot("2025-03-01", 1), false)

	assert.True(t, result.Success)
	assert.False(t, svc.PublisherHealthy())
}

func TestSnapshotService_Import(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	ctx := context.Background()

	text := "Title\tViews\tImpressions\tCTR\nVideo A\t1,200\t10,000\t4.5%\nnot a row\nVideo B\t300\t2,000\t3%"

	result := svc.Import(ctx, text, "2025-03-02", false)

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Snapshot.Data, 2)
	assert.Equal(t, "2025-03-02", result.Snapshot.SnapshotDate)
	assert.Contains(t, result.Warnings, "Skipped 1 invalid line: 3")

	got, err := svc.Get(ctx, "2025-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.Data[0].Views)
}

func TestSnapshotService_Import_OutOfRangeCTR(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	ctx := context.Background()

	result := svc.Import(ctx, "Video A\t100\t1000\t5%\nVideo B\t200\t2000\t150", "2024-01-02", false)
	require.True(t, result.Success, result.Details)

	got, err := svc.Get(ctx, "2024-01-02")
	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.NotNil(t, got.Data[0].CTR)
	assert.Nil(t, got.Data[1].CTR)
}

func TestSnapshotService_Import_ParseFailure(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)

	result := svc.Import(context.Background(), "   ", "2025-03-02", false)

	assert.False(t, result.Success)
	assert.True(t, result.Invalid)
	assert.NotEmpty(t, result.Details)
	assert.Empty(t, publisher.events)
}

func TestSnapshotService_Preview(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)

	result := svc.Preview("Video A\t100", "2025-03-02")

	require.True(t, result.Success)
	assert.Equal(t, "Video A", result.Snapshot.Data[0].Title)

	dates, err := svc.ListDates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
	assert.Empty(t, publisher.events)
}

func TestSnapshotService_GetLatestAndList(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	ctx := context.Background()

	_, err := svc.GetLatest(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 100), false).Success)
	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-03", 300), false).Success)
	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-02", 200), false).Success)

	latest, err := svc.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", latest.SnapshotDate)

	dates, err := svc.ListDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03", "2025-03-02", "2025-03-01"}, dates)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSnapshots)
	assert.Equal(t, "2025-03-01", stats.OldestDate)
	assert.Equal(t, "2025-03-03", stats.LatestDate)
	assert.Positive(t, stats.StorageUsageBytes)
}

func TestSnapshotService_ReadsReturnStoreErrors(t *testing.T) {
	cause := errors.New("io failure")
	svc := NewSnapshotService(unreadableStore{Store: store.NewMemoryStore(), err: cause}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "2025-03-01")
	assert.ErrorIs(t, err, cause)

	_, err = svc.GetLatest(ctx)
	assert.ErrorIs(t, err, cause)

	dates, err := svc.ListDates(ctx)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, dates)

	stats, err := svc.Stats(ctx)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, stats)
}

func TestSnapshotService_CacheInvalidation(t *testing.T) {
	backend := &countingStore{Store: store.NewMemoryStore()}
	cache := NewSnapshotCache(config.CacheConfig{Enabled: true, SizeMB: 1, TTL: time.Minute})
	svc := NewSnapshotService(backend, nil, cache, nil, nil)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 1, "Video A"), false).Success)

	_, err := svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets, "second read is served from cache")

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 2, "Video B"), true).Success)

	got, err := svc.Get(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Video B", got.Data[0].Title)
	assert.Equal(t, 2, backend.gets)

	deleted, err := svc.Delete(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Get(ctx, "2025-03-01")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotService_GetLatest_SaveDuringReadIsNotCached(t *testing.T) {
	backend := &racingStore{Store: store.NewMemoryStore()}
	cache := NewSnapshotCache(config.CacheConfig{Enabled: true, SizeMB: 1, TTL: time.Minute})
	svc := NewSnapshotService(backend, nil, cache, nil, nil)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 100, "Video A"), false).Success)

	backend.afterRead = func() {
		require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-02", 200, "Video B"), false).Success)
	}

	stale, err := svc.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", stale.SnapshotDate)

	latest, err := svc.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", latest.SnapshotDate)
}

func TestSnapshotService_Delete(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 1), false).Success)

	deleted, err := svc.Delete(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, []string{EventSnapshotSaved, EventSnapshotDeleted}, publisher.actions())
	assert.Equal(t, "2025-03-01", publisher.events[1].SnapshotDate)
}

func TestSnapshotService_Delete_StoreFailure(t *testing.T) {
	svc := NewSnapshotService(failingStore{Store: store.NewMemoryStore(), err: errors.New("io error")}, nil, nil, nil, nil)

	_, err := svc.Delete(context.Background(), "2025-03-01")

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "failed to delete snapshot", procErr.Message)
}

func TestSnapshotService_ClearAll(t *testing.T) {
	svc, publisher := newTestSnapshotService(t)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-01", 1), false).Success)
	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-02", 2), false).Success)

	require.NoError(t, svc.ClearAll(ctx))

	dates, err := svc.ListDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)
	assert.Equal(t, EventSnapshotCleared, publisher.actions()[2])

	failing := NewSnapshotService(failingStore{Store: store.NewMemoryStore(), err: errors.New("io error")}, nil, nil, nil, nil)
	var procErr *ProcessingError
	assert.ErrorAs(t, failing.ClearAll(ctx), &procErr)
}

func TestSnapshotService_Deltas(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	ctx := context.Background()

	yesterday := newServiceSnapshot("2025-03-01", 1, "Video A", "Video B")
	today := newServiceSnapshot("2025-03-02", 2, "Video B", "Video A", "Video C", "video a")
	today.Data[1].Views = 150 // Video A: 100 -> 150

	require.True(t, svc.Save(ctx, yesterday, false).Success)
	require.True(t, svc.Save(ctx, today, false).Success)

	report, err := svc.Deltas(ctx, "2025-03-02")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-02", report.SnapshotDate)
	assert.Equal(t, "2025-03-01", report.PreviousSnapshotDate)
	assert.True(t, report.Available)
	require.Len(t, report.Deltas, 3)

	assert.Equal(t, "Video B", report.Deltas[0].Title)
	assert.Equal(t, "Video A", report.Deltas[1].Title)
	require.NotNil(t, report.Deltas[1].Views24h)
	assert.Equal(t, int64(50), *report.Deltas[1].Views24h)
	assert.Equal(t, "Video C", report.Deltas[2].Title)
	assert.True(t, report.Deltas[2].AddedToday)
}

func TestSnapshotService_Deltas_NoPreviousDay(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	ctx := context.Background()

	require.True(t, svc.Save(ctx, newServiceSnapshot("2025-03-05", 1, "Video A"), false).Success)

	report, err := svc.Deltas(ctx, "2025-03-05")
	require.NoError(t, err)
	assert.False(t, report.Available)
	require.Len(t, report.Deltas, 1)
	assert.True(t, report.Deltas[0].AddedToday)
}

func TestSnapshotService_Deltas_Missing(t *testing.T) {
	svc, _ := newTestSnapshotService(t)

	_, err := svc.Deltas(context.Background(), "2025-03-05")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotService_Ping(t *testing.T) {
	svc, _ := newTestSnapshotService(t)
	assert.NoError(t, svc.Ping(context.Background()))
}
