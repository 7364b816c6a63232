package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber parses a non-negative integer cell such as "1,234" or "1 234".
// Commas and any whitespace (including no-break spaces) are treated as thousands separators.
func ParseNumber(s string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if cleaned == "" {
		return 0, false
	}

	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// ParsePercentage parses a click-through-rate cell into a fraction.
// Values above 1 are read as percentages ("4.5%" and "4.5" both give 0.045);
// values at or below 1 are taken as already fractional ("0.045" gives 0.045).
// Anything above 100% is rejected so the cell is treated as missing.
func ParsePercentage(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '%' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}

	if v > 1 {
		v /= 100
	}
	if v > 1 {
		return 0, false
	}

	return v, true
}
