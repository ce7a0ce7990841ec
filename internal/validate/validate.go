// Package validate checks the user-typed values that end up inside model
// prompts: subjects (titles and names) and release years.
package validate

import (
	"strconv"
	"strings"
)

// EarliestYear is the first release year accepted for a title.
const EarliestYear = 1870

// yearsAhead lets announced titles be looked up before release.
const yearsAhead = 10

// FieldError names the rejected field and what was wrong with it.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + " " + e.Reason }

// Required rejects empty and whitespace-only values.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Reason: "is required"}
	}
	return nil
}

// Year accepts EarliestYear through currentYear+10.
func Year(field string, value, currentYear int) error {
	latest := currentYear + yearsAhead
	if value < EarliestYear || value > latest {
		return &FieldError{
			Field:  field,
			Reason: "must be between " + strconv.Itoa(EarliestYear) + " and " + strconv.Itoa(latest),
		}
	}
	return nil
}
