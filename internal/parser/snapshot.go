// Package parser turns pasted YouTube Studio tables into structured snapshots.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// DefaultMaxPasteSize is the largest paste accepted, in bytes.
const DefaultMaxPasteSize = 1 << 20

// Column positions of a pasted row.
const (
	colTitle = iota
	colViews
	colImpressions
	colCTR
)

// A first line containing any of these (lowercased) is treated as a header.
var headerKeywords = []string{"title", "views", "impressions", "ctr"}

// ParseResult is the outcome of parsing a paste. Failures are reported in Errors, never panicked.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ParseResult struct {
	Success  bool             `json:"success"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Errors   []string         `json:"errors,omitempty"`
}

// Parser converts tab-separated pastes into snapshots.
type Parser struct {
	maxSize int
	now     func() time.Time
}

// New creates a Parser that rejects pastes larger than maxSize bytes.
// A non-positive maxSize falls back to DefaultMaxPasteSize.
func New(maxSize int) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxPasteSize
	}
	return &Parser{
		maxSize: maxSize,
		now:     time.Now,
	}
}

var defaultParser = New(DefaultMaxPasteSize)

// ParseSnapshot parses text with the default size limit.
func ParseSnapshot(text, snapshotDate string) ParseResult {
	return defaultParser.Parse(text, snapshotDate)
}

// Parse converts raw clipboard text into a snapshot dated snapshotDate (YYYY-MM-DD).
// An empty snapshotDate means today in local time.
func (p *Parser) Parse(text, snapshotDate string) ParseResult {
	if len(text) > p.maxSize {
		return failure(fmt.Sprintf("input exceeds maximum size of %d bytes", p.maxSize))
	}

	if strings.TrimSpace(text) == "" {
		return failure("input is empty")
	}

	now := p.now()
	if snapshotDate == "" {
		snapshotDate = now.Format(models.SnapshotDateLayout)
	} else if _, err := time.Parse(models.SnapshotDateLayout, snapshotDate); err != nil {
		return failure(fmt.Sprintf("invalid snapshot date %q (expected YYYY-MM-DD)", snapshotDate))
	}

	lines := splitLines(text)

	var warnings []string
	start := 0
	if isHeader(lines[0]) {
		start = 1
		warnings = append(warnings, "Header row detected and skipped")
	}

	rows := make([]models.SnapshotRow, 0, len(lines)-start)
	var skipped []int

	for i := start; i < len(lines); i++ {
		row, ok := parseRow(lines[i])
		if !ok {
			skipped = append(skipped, i+1)
			continue
		}
		rows = append(rows, row)
	}

	if len(skipped) > 0 {
		warnings = append(warnings, skippedWarning(skipped))
	}

	if len(rows) == 0 {
		return ParseResult{
			Success:  false,
			Warnings: warnings,
			Errors:   []string{"no valid data rows found"},
		}
	}

	return ParseResult{
		Success: true,
		Snapshot: &models.Snapshot{
			SnapshotDate:     snapshotDate,
			CaptureTimestamp: now.UnixMilli(),
			Data:             rows,
			Source:           models.SnapshotSourceManualPaste,
		},
		Warnings: warnings,
	}
}

// splitLines normalizes line endings and drops blank lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// parseRow reads Title, Views, Impressions?, CTR? from one tab-separated line.
func parseRow(line string) (models.SnapshotRow, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) < 2 {
		return models.SnapshotRow{}, false
	}

	title := strings.TrimSpace(cols[colTitle])
	if title == "" {
		return models.SnapshotRow{}, false
	}

	views, ok := ParseNumber(cols[colViews])
	if !ok {
		return models.SnapshotRow{}, false
	}

	row := models.SnapshotRow{
		Title: title,
		Views: views,
	}

	if len(cols) > colImpressions {
		if impressions, ok := ParseNumber(cols[colImpressions]); ok {
			row.Impressions = &impressions
		}
	}

	if len(cols) > colCTR {
		if ctr, ok := ParsePercentage(cols[colCTR]); ok {
			row.CTR = &ctr
		}
	}

	return row, true
}

func skippedWarning(lineNumbers []int) string {
	parts := make([]string, len(lineNumbers))
	for i, n := range lineNumbers {
		parts[i] = strconv.Itoa(n)
	}

	noun := "line"
	if len(lineNumbers) > 1 {
		noun = "lines"
	}

	return fmt.Sprintf("Skipped %d invalid %s: %s", len(lineNumbers), noun, strings.Join(parts, ", "))
}

func failure(msg string) ParseResult {
	return ParseResult{
		Success: false,
		Errors:  []string{msg},
	}
}
