package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "2023-03-15", "2023-03-15"},
		{"slash iso", "2023/03/15", "2023-03-15"},
		{"us slashes", "03/15/2023", "2023-03-15"},
		{"us slashes no padding", "3/5/2023", "2023-03-05"},
		{"us dashes", "03-15-2023", "2023-03-15"},
		{"written month", "March 15, 2023", "2023-03-15"},
		{"written month no comma", "March 15 2023", "2023-03-15"},
		{"abbreviated month", "Mar 15, 2023", "2023-03-15"},
		{"abbreviated month with dot", "Mar. 15, 2023", "2023-03-15"},
		{"day first written", "15 March 2023", "2023-03-15"},
		{"day first abbreviated", "15 Mar 2023", "2023-03-15"},
		{"european dotted", "15.03.2023", "2023-03-15"},
		{"surrounding whitespace", "  March 15, 2023 ", "2023-03-15"},
		{"collapsed inner whitespace", "March  15,  2023", "2023-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "unknown", "sometime in 2023", "13/45/2023", "March"} {
		_, err := NormalizeDate(input)
		assert.Error(t, err, "input %q should not parse", input)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("January 2, 2019")
	require.NoError(t, err)
	assert.Equal(t, 2019, got.Year())
	assert.Equal(t, 1, int(got.Month()))
	assert.Equal(t, 2, got.Day())
}
