package merge

import (
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// MergeMetrics builds display metrics from the API bundle, filling gaps from a matched
// snapshot row. Only impressions_24h and ctr_24h are replaced, and only when the API
// reports exactly zero for them. Delta fields are attached when delta is non-nil.
func MergeMetrics(api models.VideoMetrics, row *models.SnapshotRow, delta *models.SnapshotDelta) models.DisplayMetrics {
	display := models.DisplayMetrics{
		VideoMetrics: api,
		Sources:      apiSources(),
	}

	if row != nil {
		if api.Impressions24h == 0 && row.Impressions != nil {
			display.Impressions24h = *row.Impressions
			display.Sources[models.FieldImpressions24h] = models.MetricSourceSnapshot
		}

		if api.CTR24h == 0 && row.CTR != nil {
			display.CTR24h = ctrPercent(*row.CTR)
			display.Sources[models.FieldCTR24h] = models.MetricSourceSnapshot
		}
	}

	if delta != nil {
		display.ViewsDelta = delta.Views24h
		display.ImpressionsDelta = delta.Impressions24h
		display.AddedToday = delta.AddedToday
	}

	return display
}

func apiSources() map[string]models.MetricSource {
	sources := make(map[string]models.MetricSource, len(models.MetricFields))
	for _, field := range models.MetricFields {
		sources[field] = models.MetricSourceAPI
	}
	return sources
}

// ctrPercent converts a stored fraction to a percentage; values above 1 are already percentages.
func ctrPercent(ctr float64) float64 {
	if ctr <= 1 {
		return ctr * 100
	}
	return ctr
}
