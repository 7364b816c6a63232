// Package merge combines live video records with stored performance snapshots.
package merge

import (
	"regexp"
	"strings"
)

// Trailing decorations YouTube titles commonly carry, e.g. "My Video - Shorts" or "Clip | 4K".
var suffixPattern = regexp.MustCompile(`(?i)\s*[-|]\s*(shorts?|official|hd|4k)$`)

// NormalizeTitle returns the comparison key of a title: lowercased, whitespace collapsed
// and trimmed, with trailing decoration suffixes removed. NormalizeTitle is idempotent.
func NormalizeTitle(title string) string {
	s := strings.Join(strings.Fields(strings.ToLower(title)), " ")

	// Strip repeatedly so "clip - hd - shorts" and "clip" share a key.
	for {
		stripped := strings.TrimSpace(suffixPattern.ReplaceAllString(s, ""))
		if stripped == s {
			return s
		}
		s = stripped
	}
}
