// Package service provides the business logic for capturing, storing and merging performance snapshots.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/merge"
	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/parser"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// SaveResult is the outcome of persisting a snapshot. Failures are values, not errors.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SaveResult struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Invalid   bool             `json:"-"`
	Snapshot  *models.Snapshot `json:"snapshot,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Details   []string         `json:"details,omitempty"`
}

// DeltaReport lists day-over-day changes of one snapshot against the previous calendar day.
// Deltas follow the row order of the snapshot.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DeltaReport struct {
	SnapshotDate         string                 `json:"snapshotDate"`
	PreviousSnapshotDate string                 `json:"previousSnapshotDate"`
	Available            bool                   `json:"available"`
	Deltas               []models.SnapshotDelta `json:"deltas"`
}

// SnapshotService handles parsing, validation, persistence and lifecycle events of snapshots.
type SnapshotService struct {
	store     store.Store
	parser    *parser.Parser
	cache     SnapshotCache
	publisher EventPublisher
	recorder  metrics.Recorder
	log       *zap.Logger

	// generation is bumped on every invalidation; reads that started under an
	// older generation do not populate the cache.
	cacheMu    sync.Mutex
	generation uint64
}

// NewSnapshotService creates a new SnapshotService. Nil cache, publisher and recorder disable those concerns.
func NewSnapshotService(
	st store.Store,
	p *parser.Parser,
	cache SnapshotCache,
	publisher EventPublisher,
	recorder metrics.Recorder,
) *SnapshotService {
	if p == nil {
		p = parser.New(parser.DefaultMaxPasteSize)
	}
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return &SnapshotService{
		store:     st,
		parser:    p,
		cache:     cache,
		publisher: publisher,
		recorder:  recorder,
		log:       logger.Named("snapshots"),
	}
}

// Preview parses pasted text without persisting anything.
func (s *SnapshotService) Preview(text, snapshotDate string) parser.ParseResult {
	return s.parser.Parse(text, snapshotDate)
}

// Import parses pasted text and saves the result. Parse warnings are carried into the SaveResult.
func (s *SnapshotService) Import(ctx context.Context, text, snapshotDate string, overwrite bool) SaveResult {
	parsed := s.parser.Parse(text, snapshotDate)
	if !parsed.Success {
		return SaveResult{
			Success:  false,
			Invalid:  true,
			Error:    "failed to parse snapshot",
			Details:  parsed.Errors,
			Warnings: parsed.Warnings,
		}
	}

	result := s.Save(ctx, parsed.Snapshot, overwrite)
	result.Warnings = append(parsed.Warnings, result.Warnings...)
	return result
}

// Save validates and persists snapshot. A second save for the same date fails as a
// duplicate unless overwrite is set.
func (s *SnapshotService) Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) SaveResult {
	validation := parser.ValidateSnapshot(snapshot)
	if !validation.Valid {
		s.log.Warn("Snapshot validation failed", zap.Strings("errors", validation.Errors))
		return SaveResult{
			Success:  false,
			Invalid:  true,
			Error:    "snapshot is invalid",
			Details:  validation.Errors,
			Warnings: validation.Warnings,
		}
	}

	if snapshot.Source == "" {
		snapshot.Source = models.SnapshotSourceManualPaste
	}

	if err := s.store.Save(ctx, snapshot, overwrite); err != nil {
		if store.IsDuplicateDate(err) {
			s.log.Info("Snapshot already exists for date",
				zap.String("snapshotDate", snapshot.SnapshotDate),
			)
			return SaveResult{
				Success:   false,
				Duplicate: true,
				Error:     fmt.Sprintf("a snapshot already exists for %s", snapshot.SnapshotDate),
				Warnings:  validation.Warnings,
			}
		}

		s.log.Error("Failed to save snapshot",
			zap.Error(err),
			zap.String("snapshotDate", snapshot.SnapshotDate),
		)
		return SaveResult{
			Success:  false,
			Error:    fmt.Sprintf("failed to save snapshot: %v", err),
			Warnings: validation.Warnings,
		}
	}

	s.invalidate(snapshot.SnapshotDate, latestCacheKey)

	s.log.Info("Snapshot saved",
		zap.String("snapshotDate", snapshot.SnapshotDate),
		zap.Int("rows", len(snapshot.Data)),
		zap.Bool("overwrite", overwrite),
	)

	event := NewSnapshotEvent(EventSnapshotSaved, snapshot)
	event.Overwrite = overwrite
	s.publish(ctx, event)

	return SaveResult{
		Success:  true,
		Snapshot: snapshot,
		Warnings: validation.Warnings,
	}
}

// Get returns the snapshot for date, or store.ErrNotFound.
func (s *SnapshotService) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	if snapshot, ok := s.cache.Get(date); ok {
		s.recorder.IncCacheHits()
		return snapshot, nil
	}
	s.recorder.IncCacheMisses()

	gen := s.cacheGeneration()
	snapshot, err := s.store.Get(ctx, date)
	if err != nil {
		return nil, err
	}

	s.fill(gen, date, snapshot)
	return snapshot, nil
}

// GetLatest returns the most recently captured snapshot, or store.ErrNotFound.
func (s *SnapshotService) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	if snapshot, ok := s.cache.Get(latestCacheKey); ok {
		s.recorder.IncCacheHits()
		return snapshot, nil
	}
	s.recorder.IncCacheMisses()

	gen := s.cacheGeneration()
	snapshot, err := s.store.GetLatest(ctx)
	if err != nil {
		return nil, err
	}

	s.fill(gen, latestCacheKey, snapshot)
	return snapshot, nil
}

func (s *SnapshotService) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// fill caches a read unless a write invalidated the cache after the read began.
func (s *SnapshotService) fill(gen uint64, key string, snapshot *models.Snapshot) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.generation != gen {
		return
	}
	s.cache.Set(key, snapshot)
}

// invalidate drops keys, or the whole cache when none are given.
func (s *SnapshotService) invalidate(keys ...string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation++
	if len(keys) == 0 {
		s.cache.Clear()
		return
	}
	s.cache.Delete(keys...)
}

// ListDates returns stored dates, newest first.
func (s *SnapshotService) ListDates(ctx context.Context) ([]string, error) {
	return s.store.ListDates(ctx)
}

// Delete removes the snapshot for date and reports whether it existed.
func (s *SnapshotService) Delete(ctx context.Context, date string) (bool, error) {
	deleted, err := s.store.Delete(ctx, date)
	if err != nil {
		s.log.Error("Failed to delete snapshot", zap.Error(err), zap.String("snapshotDate", date))
		return false, &ProcessingError{Message: "failed to delete snapshot", Cause: err}
	}

	s.invalidate(date, latestCacheKey)

	if deleted {
		s.log.Info("Snapshot deleted", zap.String("snapshotDate", date))
		event := NewSnapshotEvent(EventSnapshotDeleted, nil)
		event.SnapshotDate = date
		s.publish(ctx, event)
	}

	return deleted, nil
}

// Stats summarizes the store.
func (s *SnapshotService) Stats(ctx context.Context) (*models.StorageStats, error) {
	return s.store.GetStorageStats(ctx)
}

// ClearAll removes every stored snapshot.
func (s *SnapshotService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		s.log.Error("Failed to clear snapshots", zap.Error(err))
		return &ProcessingError{Message: "failed to clear snapshots", Cause: err}
	}

	s.invalidate()
	s.log.Info("All snapshots cleared")
	s.publish(ctx, NewSnapshotEvent(EventSnapshotCleared, nil))

	return nil
}

// Deltas compares the snapshot for date with the one dated the previous calendar day.
// When that snapshot does not exist, every row is reported as added and Available is false.
func (s *SnapshotService) Deltas(ctx context.Context, date string) (*DeltaReport, error) {
	today, err := s.Get(ctx, date)
	if err != nil {
		return nil, err
	}

	previousDate, err := merge.PreviousDate(date)
	if err != nil {
		return nil, &ValidationError{Message: "invalid snapshot date", Details: []string{err.Error()}}
	}

	yesterday, err := s.Get(ctx, previousDate)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	deltas := merge.ComputeDeltas(today, yesterday)

	report := &DeltaReport{
		SnapshotDate:         date,
		PreviousSnapshotDate: previousDate,
		Available:            yesterday != nil,
		Deltas:               make([]models.SnapshotDelta, 0, len(deltas)),
	}

	seen := make(map[string]bool, len(deltas))
	for _, row := range today.Data {
		key := merge.NormalizeTitle(row.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		if delta, ok := deltas[key]; ok {
			report.Deltas = append(report.Deltas, delta)
		}
	}

	return report, nil
}

// Ping reports whether the store is reachable.
func (s *SnapshotService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PublisherHealthy reports whether event delivery is available.
func (s *SnapshotService) PublisherHealthy() bool {
	return s.publisher.IsHealthy()
}

// publish never fails the calling operation; the snapshot is already persisted.
func (s *SnapshotService) publish(ctx context.Context, event *SnapshotEvent) {
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish snapshot event",
			zap.Error(err),
			zap.String("eventId", event.ID.String()),
			zap.String("action", event.Action),
			zap.String("snapshotDate", event.SnapshotDate),
		)
	}
}
