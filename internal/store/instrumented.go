package store

import (
	"context"
	"errors"
	"time"

	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// Instrumented wraps a Store and records the duration and failures of every operation.
// Not-found and duplicate outcomes are expected results, not failures.
type Instrumented struct {
	next     Store
	recorder metrics.Recorder
}

// NewInstrumented wraps next with metrics recording.
func NewInstrumented(next Store, recorder metrics.Recorder) *Instrumented {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &Instrumented{next: next, recorder: recorder}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateDate) {
		err = nil
	}
	s.recorder.ObserveStoreOp(op, time.Since(start), err)
}

func (s *Instrumented) Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) error {
	start := time.Now()
	err := s.next.Save(ctx, snapshot, overwrite)
	s.observe("save", start, err)
	return err
}

func (s *Instrumented) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	start := time.Now()
	snapshot, err := s.next.Get(ctx, date)
	s.observe("get", start, err)
	return snapshot, err
}

func (s *Instrumented) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	snapshot, err := s.next.GetLatest(ctx)
	s.observe("get_latest", start, err)
	return snapshot, err
}

func (s *Instrumented) ListDates(ctx context.Context) ([]string, error) {
	start := time.Now()
	dates, err := s.next.ListDates(ctx)
	s.observe("list_dates", start, err)
	return dates, err
}

func (s *Instrumented) Delete(ctx context.Context, date string) (bool, error) {
	start := time.Now()
	deleted, err := s.next.Delete(ctx, date)
	s.observe("delete", start, err)
	return deleted, err
}

func (s *Instrumented) GetStorageStats(ctx context.Context) (*models.StorageStats, error) {
	start := time.Now()
	stats, err := s.next.GetStorageStats(ctx)
	s.observe("stats", start, err)
	return stats, err
}

func (s *Instrumented) ClearAll(ctx context.Context) error {
	start := time.Now()
	err := s.next.ClearAll(ctx)
	s.observe("clear_all", start, err)
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
