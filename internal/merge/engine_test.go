package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
)

type countingRecorder struct {
	metrics.Recorder
	matches map[string]int
	merges  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{Recorder: metrics.Noop(), matches: map[string]int{}}
}

func (r *countingRecorder) ObserveMatch(matchType string)       { r.matches[matchType]++ }
func (r *countingRecorder) ObserveMerge(_ time.Duration, _ int) { r.merges++ }

type brokenReader struct{}

func (brokenReader) Get(context.Context, string) (*models.Snapshot, error) {
	return nil, errors.New("database is locked")
}

func (brokenReader) GetLatest(context.Context) (*models.Snapshot, error) {
	return nil, errors.New("database is locked")
}

func seededStore(t *testing.T, snapshots ...*models.Snapshot) *store.MemoryStore {
	t.Helper()

	s := store.NewMemoryStore()
	for _, snapshot := range snapshots {
		require.NoError(t, s.Save(context.Background(), snapshot, false))
	}
	return s
}

func video(id, title string, metrics models.VideoMetrics) models.VideoRecord {
	return models.VideoRecord{VideoID: id, Title: title, Metrics: metrics}
}

func TestEngine_Merge_EmptyInput(t *testing.T) {
	rec := newCountingRecorder()
	engine := NewEngine(seededStore(t), rec, 0)

	result, err := engine.Merge(context.Background(), nil, MergeOptions{IncludeDeltas: true})

	require.NoError(t, err)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.Equal(t, models.MergeStats{}, result.Stats)
	assert.Equal(t, 1, rec.merges)
}

func TestEngine_Merge_NoSnapshotFallback(t *testing.T) {
	rec := newCountingRecorder()
	engine := NewEngine(seededStore(t), rec, 0)

	api := models.VideoMetrics{Views24h: 12, Views7d: 80}
	result, err := engine.Merge(context.Background(), []models.VideoRecord{video("v1", "Video A", api)}, MergeOptions{IncludeDeltas: true})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	assert.Nil(t, record.SnapshotMatch)
	assert.Equal(t, api, record.DisplayMetrics.VideoMetrics)
	for _, field := range models.MetricFields {
		assert.Equal(t, models.MetricSourceAPI, record.DisplayMetrics.Source(field), field)
	}

	assert.Equal(t, 1, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.None)
	assert.Empty(t, result.Stats.SnapshotDate)
	assert.False(t, result.Stats.DeltasAvailable)
	assert.Equal(t, 1, rec.matches["none"])
}

func TestEngine_Merge_StoreFailureFallsBack(t *testing.T) {
	engine := NewEngine(brokenReader{}, nil, 0)

	result, err := engine.Merge(context.Background(), []models.VideoRecord{
		video("v1", "Video A", models.VideoMetrics{}),
		video("v2", "Video B", models.VideoMetrics{}),
	}, MergeOptions{IncludeDeltas: true})

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Nil(t, result.Records[0].SnapshotMatch)
	assert.Nil(t, result.Records[1].SnapshotMatch)
	assert.Equal(t, 2, result.Stats.None)
}

func TestEngine_Merge_WithSnapshotsAndDeltas(t *testing.T) {
	yesterday := &models.Snapshot{
		SnapshotDate:     "2025-03-01",
		CaptureTimestamp: 1000,
		Source:           models.SnapshotSourceManualPaste,
		Data: []models.SnapshotRow{
			{Title: "Morning Routine", Views: 100, Impressions: int64Ptr(2000)},
			{Title: "Studio Tour", Views: 400, Impressions: int64Ptr(9000)},
		},
	}
	today := &models.Snapshot{
		SnapshotDate:     "2025-03-02",
		CaptureTimestamp: 2000,
		Source:           models.SnapshotSourceManualPaste,
		Data: []models.SnapshotRow{
			{Title: "Morning Routine", Views: 160, Impressions: int64Ptr(2600), CTR: float64Ptr(0.052)},
			{Title: "Studio Tour - Full Walkthrough", Views: 380, Impressions: int64Ptr(9500), CTR: float64Ptr(0.03)},
			{Title: "New Upload", Views: 50, Impressions: int64Ptr(700), CTR: float64Ptr(0.08)},
		},
	}

	rec := newCountingRecorder()
	engine := NewEngine(seededStore(t, yesterday, today), rec, 0)

	videos := []models.VideoRecord{
		video("v1", "Morning Routine - Shorts", models.VideoMetrics{Views24h: 60}),
		video("v2", "Studio Tour - Full Walkthrough!", models.VideoMetrics{Impressions24h: 11, CTR24h: 2.5}),
		video("v3", "Not In Snapshot", models.VideoMetrics{Views24h: 3}),
		video("v4", "New Upload", models.VideoMetrics{}),
	}

	result, err := engine.Merge(context.Background(), videos, MergeOptions{IncludeDeltas: true})
	require.NoError(t, err)
	require.Len(t, result.Records, 4)

	// Order is preserved.
	for i, v := range videos {
		assert.Equal(t, v.VideoID, result.Records[i].VideoID)
	}

	assert.Equal(t, models.MergeStats{
		Total:                4,
		Exact:                2,
		Fuzzy:                1,
		None:                 1,
		SnapshotDate:         "2025-03-02",
		PreviousSnapshotDate: "2025-03-01",
		DeltasAvailable:      true,
	}, result.Stats)

	morning := result.Records[0]
	require.NotNil(t, morning.SnapshotMatch)
	assert.Equal(t, models.MatchTypeExact, morning.SnapshotMatch.MatchType)
	assert.Equal(t, int64(2600), morning.DisplayMetrics.Impressions24h)
	assert.Equal(t, models.MetricSourceSnapshot, morning.DisplayMetrics.Source(models.FieldImpressions24h))
	assert.InDelta(t, 5.2, morning.DisplayMetrics.CTR24h, 1e-9)
	require.NotNil(t, morning.DisplayMetrics.ViewsDelta)
	assert.Equal(t, int64(60), *morning.DisplayMetrics.ViewsDelta)
	require.NotNil(t, morning.DisplayMetrics.ImpressionsDelta)
	assert.Equal(t, int64(600), *morning.DisplayMetrics.ImpressionsDelta)

	tour := result.Records[1]
	require.NotNil(t, tour.SnapshotMatch)
	assert.Equal(t, models.MatchTypeFuzzy, tour.SnapshotMatch.MatchType)
	assert.Equal(t, "Studio Tour - Full Walkthrough", tour.SnapshotMatch.MatchedTitle)
	assert.Equal(t, int64(11), tour.DisplayMetrics.Impressions24h, "non-zero API value is kept")
	assert.Equal(t, models.MetricSourceAPI, tour.DisplayMetrics.Source(models.FieldImpressions24h))
	// Yesterday's title differs, so this row counts as added today.
	assert.True(t, tour.DisplayMetrics.AddedToday)

	missing := result.Records[2]
	assert.Nil(t, missing.SnapshotMatch)
	assert.Equal(t, int64(3), missing.DisplayMetrics.Views24h)

	added := result.Records[3]
	require.NotNil(t, added.SnapshotMatch)
	assert.True(t, added.DisplayMetrics.AddedToday)
	assert.Nil(t, added.DisplayMetrics.ViewsDelta)

	assert.Equal(t, 2, rec.matches["exact"])
	assert.Equal(t, 1, rec.matches["fuzzy"])
	assert.Equal(t, 1, rec.matches["none"])
}

func TestEngine_Merge_DeltasNeedConsecutiveDay(t *testing.T) {
	older := &models.Snapshot{
		SnapshotDate:     "2025-02-27",
		CaptureTimestamp: 1000,
		Data:             []models.SnapshotRow{{Title: "Video", Views: 10}},
	}
	latest := &models.Snapshot{
		SnapshotDate:     "2025-03-01",
		CaptureTimestamp: 2000,
		Data:             []models.SnapshotRow{{Title: "Video", Views: 20}},
	}

	engine := NewEngine(seededStore(t, older, latest), nil, 0)
	result, err := engine.Merge(context.Background(), []models.VideoRecord{video("v", "Video", models.VideoMetrics{})}, MergeOptions{IncludeDeltas: true})

	require.NoError(t, err)
	assert.False(t, result.Stats.DeltasAvailable)
	assert.Empty(t, result.Stats.PreviousSnapshotDate)
	assert.Nil(t, result.Records[0].DisplayMetrics.ViewsDelta)
	assert.False(t, result.Records[0].DisplayMetrics.AddedToday)
}

func TestEngine_Merge_DeltasNotRequested(t *testing.T) {
	yesterday := &models.Snapshot{SnapshotDate: "2025-03-01", CaptureTimestamp: 1, Data: []models.SnapshotRow{{Title: "Video", Views: 1}}}
	today := &models.Snapshot{SnapshotDate: "2025-03-02", CaptureTimestamp: 2, Data: []models.SnapshotRow{{Title: "Video", Views: 5}}}

	engine := NewEngine(seededStore(t, yesterday, today), nil, 0)
	result, err := engine.Merge(context.Background(), []models.VideoRecord{video("v", "Video", models.VideoMetrics{})}, MergeOptions{})

	require.NoError(t, err)
	assert.False(t, result.Stats.DeltasAvailable)
	assert.Nil(t, result.Records[0].DisplayMetrics.ViewsDelta)
	assert.Equal(t, models.MatchTypeExact, result.Records[0].SnapshotMatch.MatchType)
}

func TestEngine_Merge_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(seededStore(t), nil, 0)
	_, err := engine.Merge(ctx, []models.VideoRecord{video("v", "Video", models.VideoMetrics{})}, MergeOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine_Threshold(t *testing.T) {
	assert.InDelta(t, DefaultFuzzyThreshold, NewEngine(nil, nil, 0).threshold, 0)
	assert.InDelta(t, DefaultFuzzyThreshold, NewEngine(nil, nil, 1.5).threshold, 0)
	assert.InDelta(t, 0.85, NewEngine(nil, nil, 0.85).threshold, 0)
}

func TestPreviousDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-03-02", "2025-03-01"},
		{"2025-03-01", "2025-02-28"},
		{"2024-03-01", "2024-02-29"},
		{"2025-01-01", "2024-12-31"},
	}

	for _, tt := range tests {
		got, err := PreviousDate(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := PreviousDate("yesterday")
	assert.Error(t, err)
}
