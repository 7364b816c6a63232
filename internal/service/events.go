package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// Snapshot lifecycle actions, used as the routing key suffix.
const (
	EventSnapshotSaved   = "saved"
	EventSnapshotDeleted = "deleted"
	EventSnapshotCleared = "cleared"
)

// SnapshotEvent announces a change to stored snapshots.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SnapshotEvent struct {
	ID               uuid.UUID `json:"id"`
	Action           string    `json:"action"`
	SnapshotDate     string    `json:"snapshotDate,omitempty"`
	CaptureTimestamp int64     `json:"captureTimestamp,omitempty"`
	Rows             int       `json:"rows,omitempty"`
	Overwrite        bool      `json:"overwrite,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// NewSnapshotEvent builds an event for action. snapshot may be nil for bulk actions.
func NewSnapshotEvent(action string, snapshot *models.Snapshot) *SnapshotEvent {
	event := &SnapshotEvent{
		ID:         uuid.New(),
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
	if snapshot != nil {
		event.SnapshotDate = snapshot.SnapshotDate
		event.CaptureTimestamp = snapshot.CaptureTimestamp
		event.Rows = len(snapshot.Data)
	}
	return event
}

// EventPublisher delivers snapshot events to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *SnapshotEvent) error
	IsHealthy() bool
	Close() error
}

// NoopPublisher drops events. It is used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(_ context.Context, _ *SnapshotEvent) error { return nil }
func (NoopPublisher) IsHealthy() bool                                        { return true }
func (NoopPublisher) Close() error                                           { return nil }
