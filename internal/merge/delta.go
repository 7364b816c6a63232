package merge

import (
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// ComputeDeltas derives day-over-day changes for every row of today, keyed by normalized title.
// Counts are clamped at zero so a metric never appears to decrease. Impressions are only
// diffed when both days carry them. CTR is today's value, not a difference.
// When a title repeats within a snapshot, its first row is used.
func ComputeDeltas(today, yesterday *models.Snapshot) map[string]models.SnapshotDelta {
	if today == nil {
		return map[string]models.SnapshotDelta{}
	}

	previous := make(map[string]*models.SnapshotRow)
	if yesterday != nil {
		for i := range yesterday.Data {
			key := NormalizeTitle(yesterday.Data[i].Title)
			if _, ok := previous[key]; !ok {
				previous[key] = &yesterday.Data[i]
			}
		}
	}

	deltas := make(map[string]models.SnapshotDelta, len(today.Data))
	for i := range today.Data {
		row := &today.Data[i]
		key := NormalizeTitle(row.Title)
		if _, ok := deltas[key]; ok {
			continue
		}

		delta := models.SnapshotDelta{
			Title: row.Title,
			CTR:   row.CTR,
		}

		prev, ok := previous[key]
		if !ok {
			delta.AddedToday = true
			deltas[key] = delta
			continue
		}

		views := clampedDiff(row.Views, prev.Views)
		delta.Views24h = &views

		if row.Impressions != nil && prev.Impressions != nil {
			impressions := clampedDiff(*row.Impressions, *prev.Impressions)
			delta.Impressions24h = &impressions
		}

		deltas[key] = delta
	}

	return deltas
}

func clampedDiff(current, previous int64) int64 {
	if current < previous {
		return 0
	}
	return current - previous
}
