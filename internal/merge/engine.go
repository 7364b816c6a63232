package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// SnapshotReader is the read side of a snapshot store used by the engine.
type SnapshotReader interface {
	Get(ctx context.Context, date string) (*models.Snapshot, error)
	GetLatest(ctx context.Context) (*models.Snapshot, error)
}

// MergeOptions controls a merge run.
type MergeOptions struct {
	// IncludeDeltas loads the snapshot dated one day before the latest and attaches
	// day-over-day changes to matched records.
	IncludeDeltas bool
}

// Engine merges live video records with the latest stored snapshot.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	snapshots SnapshotReader
	recorder  metrics.Recorder
	threshold float64
	log       *zap.Logger
}

// NewEngine creates an Engine. A threshold outside (0, 1] falls back to DefaultFuzzyThreshold
// and a nil recorder disables metrics.
func NewEngine(snapshots SnapshotReader, recorder metrics.Recorder, threshold float64) *Engine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return &Engine{
		snapshots: snapshots,
		recorder:  recorder,
		threshold: threshold,
		log:       logger.Named("merge"),
	}
}

// Merge returns exactly one merged record per video, in input order.
// Missing or unreadable snapshots never fail the run; they disable the snapshot
// overlay or the delta computation instead. Only a cancelled context is an error.
func (e *Engine) Merge(ctx context.Context, videos []models.VideoRecord, opts MergeOptions) (*models.MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		e.recorder.ObserveMerge(time.Since(start), len(videos))
	}()

	result := &models.MergeResult{
		Records: make([]models.MergedPerformanceRecord, 0, len(videos)),
	}
	if len(videos) == 0 {
		return result, nil
	}

	latest := e.loadLatest(ctx)
	if latest == nil {
		for _, video := range videos {
			result.Records = append(result.Records, models.MergedPerformanceRecord{
				VideoRecord:    video,
				DisplayMetrics: MergeMetrics(video.Metrics, nil, nil),
			})
			e.recorder.ObserveMatch(string(models.MatchTypeNone))
		}
		result.Stats.Total = len(videos)
		result.Stats.None = len(videos)
		return result, nil
	}

	result.Stats.SnapshotDate = latest.SnapshotDate

	var deltas map[string]models.SnapshotDelta
	if opts.IncludeDeltas {
		if previous := e.loadPrevious(ctx, latest.SnapshotDate); previous != nil {
			deltas = ComputeDeltas(latest, previous)
			result.Stats.PreviousSnapshotDate = previous.SnapshotDate
			result.Stats.DeltasAvailable = true
		}
	}

	for _, video := range videos {
		match := findBestMatch(NormalizeTitle(video.Title), latest.Data, e.threshold)
		e.recorder.ObserveMatch(string(match.MatchType))

		record := models.MergedPerformanceRecord{VideoRecord: video}

		switch match.MatchType {
		case models.MatchTypeExact:
			result.Stats.Exact++
		case models.MatchTypeFuzzy:
			result.Stats.Fuzzy++
		default:
			result.Stats.None++
			record.DisplayMetrics = MergeMetrics(video.Metrics, nil, nil)
			result.Records = append(result.Records, record)
			continue
		}

		var delta *models.SnapshotDelta
		if d, ok := deltas[NormalizeTitle(match.Row.Title)]; ok {
			delta = &d
		}

		record.DisplayMetrics = MergeMetrics(video.Metrics, match.Row, delta)
		record.SnapshotMatch = &match
		result.Records = append(result.Records, record)
	}
	result.Stats.Total = len(videos)

	e.log.Debug("Merged videos with snapshot",
		zap.String("snapshotDate", latest.SnapshotDate),
		zap.Int("total", result.Stats.Total),
		zap.Int("exact", result.Stats.Exact),
		zap.Int("fuzzy", result.Stats.Fuzzy),
		zap.Int("none", result.Stats.None),
		zap.Bool("deltasAvailable", result.Stats.DeltasAvailable),
	)

	return result, nil
}

func (e *Engine) loadLatest(ctx context.Context) *models.Snapshot {
	if e.snapshots == nil {
		return nil
	}

	snapshot, err := e.snapshots.GetLatest(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Warn("Failed to load latest snapshot, merging without snapshot data", zap.Error(err))
		}
		return nil
	}
	return snapshot
}

func (e *Engine) loadPrevious(ctx context.Context, date string) *models.Snapshot {
	previousDate, err := PreviousDate(date)
	if err != nil {
		e.log.Warn("Latest snapshot has an unparsable date", zap.String("snapshotDate", date), zap.Error(err))
		return nil
	}

	snapshot, err := e.snapshots.Get(ctx, previousDate)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Warn("Failed to load previous snapshot, deltas disabled",
				zap.String("snapshotDate", previousDate),
				zap.Error(err),
			)
		}
		return nil
	}
	return snapshot
}

// PreviousDate returns the calendar day before date (YYYY-MM-DD).
func PreviousDate(date string) (string, error) {
	t, err := time.Parse(models.SnapshotDateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse snapshot date %q: %w", date, err)
	}
	return t.AddDate(0, 0, -1).Format(models.SnapshotDateLayout), nil
}
