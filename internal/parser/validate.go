package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ad-tracker/performance-snapshots-go/internal/merge"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationResult is the outcome of checking a snapshot before it is persisted.
// Duplicate titles are reported as warnings; they do not make a snapshot invalid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json names so messages read like the wire format.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return validate
}

// ValidateSnapshot checks date, capture timestamp, rows and duplicate titles.
func ValidateSnapshot(snapshot *models.Snapshot) ValidationResult {
	if snapshot == nil {
		return ValidationResult{Valid: false, Errors: []string{"snapshot is required"}}
	}

	result := ValidationResult{Valid: true}

	if err := getValidator().Struct(snapshot); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			result.Valid = false
			result.Errors = append(result.Errors, err.Error())
			return result
		}

		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, translateError(fe))
		}
		result.Valid = false
	}

	result.Warnings = duplicateTitleWarnings(snapshot.Data)

	return result
}

// duplicateTitleWarnings reports titles that collide once normalized, since those
// are indistinguishable during matching.
func duplicateTitleWarnings(rows []models.SnapshotRow) []string {
	seen := make(map[string]int, len(rows))
	var warnings []string

	for i, row := range rows {
		key := merge.NormalizeTitle(row.Title)
		if key == "" {
			continue
		}
		if first, ok := seen[key]; ok {
			warnings = append(warnings, fmt.Sprintf("duplicate title %q (rows %d and %d)", row.Title, first+1, i+1))
			continue
		}
		seen[key] = i
	}

	return warnings
}

// fieldPath strips the leading struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func translateError(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s row(s)", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
