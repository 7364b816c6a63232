// Package store persists performance snapshots, one per calendar date.
package store

import (
	"context"
	"errors"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

var (
	// ErrNotFound is returned when no snapshot exists for the requested date,
	// or when the store is empty on a latest lookup.
	ErrNotFound = errors.New("snapshot not found")

	// ErrDuplicateDate is returned by Save when a snapshot already exists for the date
	// and overwrite was not requested.
	ErrDuplicateDate = errors.New("snapshot already exists for date")
)

// Store is keyed persistence of snapshots. Implementations are safe for concurrent use.
type Store interface {
	// Save stores snapshot under its SnapshotDate. An existing snapshot for the same
	// date is only replaced when overwrite is true; otherwise ErrDuplicateDate is returned.
	Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) error

	// Get returns the snapshot for date, or ErrNotFound.
	Get(ctx context.Context, date string) (*models.Snapshot, error)

	// GetLatest returns the snapshot with the greatest capture timestamp, or ErrNotFound.
	GetLatest(ctx context.Context) (*models.Snapshot, error)

	// ListDates returns all stored dates, newest first.
	ListDates(ctx context.Context) ([]string, error)

	// Delete removes the snapshot for date and reports whether one existed.
	Delete(ctx context.Context, date string) (bool, error)

	// GetStorageStats summarizes the store's contents.
	GetStorageStats(ctx context.Context) (*models.StorageStats, error)

	// ClearAll removes every snapshot.
	ClearAll(ctx context.Context) error

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// IsNotFound returns true if the error is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateDate returns true if the error is an ErrDuplicateDate error.
func IsDuplicateDate(err error) bool {
	return errors.Is(err, ErrDuplicateDate)
}
