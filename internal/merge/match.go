package merge

import (
	"strings"
	"unicode/utf8"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// DefaultFuzzyThreshold is the minimum containment ratio accepted as a fuzzy match.
const DefaultFuzzyThreshold = 0.7

// FindBestSnapshotMatch matches apiTitle against rows using DefaultFuzzyThreshold.
func FindBestSnapshotMatch(apiTitle string, rows []models.SnapshotRow) models.MatchResult {
	return findBestMatch(NormalizeTitle(apiTitle), rows, DefaultFuzzyThreshold)
}

// findBestMatch scans rows for the normalized title key. An exact match returns immediately
// with confidence 1. Otherwise the candidate with the highest containment ratio wins if it
// reaches threshold; among equal ratios the first row wins.
func findBestMatch(key string, rows []models.SnapshotRow, threshold float64) models.MatchResult {
	none := models.MatchResult{MatchType: models.MatchTypeNone}
	if key == "" {
		return none
	}

	bestIdx := -1
	bestConfidence := 0.0

	for i := range rows {
		candidate := NormalizeTitle(rows[i].Title)
		if candidate == "" {
			continue
		}

		if candidate == key {
			return models.MatchResult{
				MatchType:    models.MatchTypeExact,
				MatchedTitle: rows[i].Title,
				Confidence:   1,
				Row:          &rows[i],
			}
		}

		confidence := containmentRatio(key, candidate)
		if confidence >= threshold && confidence > bestConfidence {
			bestIdx = i
			bestConfidence = confidence
		}
	}

	if bestIdx < 0 {
		return none
	}

	return models.MatchResult{
		MatchType:    models.MatchTypeFuzzy,
		MatchedTitle: rows[bestIdx].Title,
		Confidence:   bestConfidence,
		Row:          &rows[bestIdx],
	}
}

// containmentRatio is len(shorter)/len(longer) in runes when one string contains the other, else 0.
func containmentRatio(a, b string) float64 {
	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}

	if !strings.Contains(longer, shorter) {
		return 0
	}

	return float64(utf8.RuneCountInString(shorter)) / float64(utf8.RuneCountInString(longer))
}
