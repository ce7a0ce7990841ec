package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/420btc/KinemaTV/internal/validate"
)

func TestRequired(t *testing.T) {
	assert.NoError(t, validate.Required("title", "Inception"))
	assert.NoError(t, validate.Required("title", " Amélie "))

	for _, blank := range []string{"", "   ", "\t\n"} {
		err := validate.Required("title", blank)
		var fe *validate.FieldError
		require.True(t, errors.As(err, &fe), "%q", blank)
		assert.Equal(t, "title is required", fe.Error())
	}
}

func TestYear(t *testing.T) {
	cases := []struct {
		year int
		ok   bool
	}{
		{2010, true},
		{validate.EarliestYear, true},
		{1869, false},
		{2036, true},
		{2037, false},
		{99, false},
		{-1, false},
	}
	for _, tc := range cases {
		err := validate.Year("year", tc.year, 2026)
		assert.Equal(t, tc.ok, err == nil, "Year(%d) = %v", tc.year, err)
	}
	assert.EqualError(t, validate.Year("year", 1500, 2026), "year must be between 1870 and 2036")
}
