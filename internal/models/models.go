// Package models contains the data models and DTOs for the performance snapshot service.
package models

import (
	"time"
)

// SnapshotSource records how a snapshot was captured.
type SnapshotSource string

// SnapshotSource constants.
const (
	SnapshotSourceManualPaste SnapshotSource = "manual_paste"
)

// SnapshotDateLayout is the calendar-date key format of a snapshot.
const SnapshotDateLayout = "2006-01-02"

// SnapshotRow is one video's metrics as captured from a pasted table.
type SnapshotRow struct {
	Title       string   `json:"title" validate:"required"`
	Views       int64    `json:"views" validate:"gte=0"`
	Impressions *int64   `json:"impressions" validate:"omitempty,gte=0"`
	CTR         *float64 `json:"ctr" validate:"omitempty,gte=0,lte=1"`
}

// Snapshot is an immutable capture of all rows at one point in time.
// It is keyed uniquely by SnapshotDate in a store.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Snapshot struct {
	SnapshotDate     string         `json:"snapshotDate" validate:"required,datetime=2006-01-02"`
	CaptureTimestamp int64          `json:"captureTimestamp" validate:"required,gt=0"`
	Data             []SnapshotRow  `json:"data" validate:"required,min=1,dive"`
	Source           SnapshotSource `json:"source"`
}

// CapturedAt returns the capture timestamp (milliseconds since epoch) as a time.
func (s *Snapshot) CapturedAt() time.Time {
	return time.UnixMilli(s.CaptureTimestamp)
}

// SnapshotDelta is the day-over-day change for one title. It is derived, never stored.
type SnapshotDelta struct {
	Title          string   `json:"title"`
	Views24h       *int64   `json:"views24h"`
	Impressions24h *int64   `json:"impressions24h"`
	CTR            *float64 `json:"ctr"`
	AddedToday     bool     `json:"addedToday"`
}

// VideoMetrics is the metrics bundle of a live video record.
// CTR values are percentages (4.5 means 4.5%).
type VideoMetrics struct {
	Impressions24h     int64   `json:"impressions_24h"`
	Views24h           int64   `json:"views_24h"`
	CTR24h             float64 `json:"ctr_24h"`
	AvgViewDuration24h float64 `json:"avg_view_duration_24h"`
	Impressions7d      int64   `json:"impressions_7d"`
	Views7d            int64   `json:"views_7d"`
	CTR7d              float64 `json:"ctr_7d"`
	AvgViewDuration7d  float64 `json:"avg_view_duration_7d"`
}

// VideoRecord is a video fetched live from the video platform.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoRecord struct {
	VideoID         string       `json:"videoId,omitempty"`
	Title           string       `json:"title" binding:"required"`
	PublishedAt     *time.Time   `json:"publishedAt,omitempty"`
	DurationSeconds int          `json:"durationSeconds,omitempty"`
	LifetimeViews   int64        `json:"lifetimeViews,omitempty"`
	Metrics         VideoMetrics `json:"metrics"`
}

// MetricSource tags where a displayed metric came from.
type MetricSource string

// MetricSource constants.
const (
	MetricSourceAPI      MetricSource = "api"
	MetricSourceSnapshot MetricSource = "snapshot"
	MetricSourceNone     MetricSource = "none"
)

// Display metric field names, matching the VideoMetrics JSON keys.
const (
	FieldImpressions24h     = "impressions_24h"
	FieldViews24h           = "views_24h"
	FieldCTR24h             = "ctr_24h"
	FieldAvgViewDuration24h = "avg_view_duration_24h"
	FieldImpressions7d      = "impressions_7d"
	FieldViews7d            = "views_7d"
	FieldCTR7d              = "ctr_7d"
	FieldAvgViewDuration7d  = "avg_view_duration_7d"
)

// MetricFields lists every field of VideoMetrics in display order.
var MetricFields = []string{
	FieldImpressions24h,
	FieldViews24h,
	FieldCTR24h,
	FieldAvgViewDuration24h,
	FieldImpressions7d,
	FieldViews7d,
	FieldCTR7d,
	FieldAvgViewDuration7d,
}

// DisplayMetrics is the final metrics bundle with per-field source attribution.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DisplayMetrics struct {
	VideoMetrics
	Sources          map[string]MetricSource `json:"sources"`
	ViewsDelta       *int64                  `json:"views_delta,omitempty"`
	ImpressionsDelta *int64                  `json:"impressions_delta,omitempty"`
	AddedToday       bool                    `json:"added_today,omitempty"`
}

// Source returns the source tag of a field, or MetricSourceNone when untagged.
func (d *DisplayMetrics) Source(field string) MetricSource {
	if src, ok := d.Sources[field]; ok {
		return src
	}
	return MetricSourceNone
}

// MatchType classifies how a video title was matched to a snapshot row.
type MatchType string

// MatchType constants.
const (
	MatchTypeExact MatchType = "exact"
	MatchTypeFuzzy MatchType = "fuzzy"
	MatchTypeNone  MatchType = "none"
)

// MatchResult is the outcome of matching one video title against a snapshot.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MatchResult struct {
	MatchType    MatchType    `json:"matchType"`
	MatchedTitle string       `json:"matchedTitle,omitempty"`
	Confidence   float64      `json:"confidence"`
	Row          *SnapshotRow `json:"-"`
}

// MergedPerformanceRecord is a live video record combined with snapshot data.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MergedPerformanceRecord struct {
	VideoRecord
	DisplayMetrics DisplayMetrics `json:"displayMetrics"`
	SnapshotMatch  *MatchResult   `json:"snapshotMatch"`
}

// MergeStats tallies match outcomes of one merge run.
type MergeStats struct {
	Total                int    `json:"total"`
	Exact                int    `json:"exact"`
	Fuzzy                int    `json:"fuzzy"`
	None                 int    `json:"none"`
	SnapshotDate         string `json:"snapshotDate,omitempty"`
	PreviousSnapshotDate string `json:"previousSnapshotDate,omitempty"`
	DeltasAvailable      bool   `json:"deltasAvailable"`
}

// MergeResult is the output of one merge run. Records preserve input order.
type MergeResult struct {
	Records []MergedPerformanceRecord `json:"records"`
	Stats   MergeStats                `json:"stats"`
}

// StorageStats summarizes what a snapshot store holds.
type StorageStats struct {
	TotalSnapshots    int    `json:"totalSnapshots"`
	OldestDate        string `json:"oldestDate,omitempty"`
	LatestDate        string `json:"latestDate,omitempty"`
	StorageUsageBytes int64  `json:"storageUsageBytes"`
}

// SnapshotPasteRequest carries raw pasted text for preview.
type SnapshotPasteRequest struct {
	Text         string `json:"text" binding:"required"`
	SnapshotDate string `json:"snapshotDate"`
}

// SaveSnapshotRequest carries either raw pasted text or an already structured snapshot.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SaveSnapshotRequest struct {
	Text         string    `json:"text"`
	SnapshotDate string    `json:"snapshotDate"`
	Snapshot     *Snapshot `json:"snapshot"`
	Overwrite    bool      `json:"overwrite"`
}

// MergeRequest carries live video records to merge with stored snapshots.
type MergeRequest struct {
	Videos        []VideoRecord `json:"videos" binding:"dive"`
	IncludeDeltas bool          `json:"includeDeltas"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   []string  `json:"details,omitempty"`
	Path      string    `json:"path"`
}
