package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTraceable(t *testing.T) {
	text := "Inventor: John A. Smith, residing at 100 Main St,\nPortland, Oregon 97201, United States. Filed March 15, 2024."

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"verbatim", "John A. Smith", true},
		{"case and wrapping", "john a.\nsmith", true},
		{"unknown marker", "unknown", true},
		{"empty value", "", true},
		{"date recoded to canonical", "2024-03-15", true},
		{"date recoded to slash form", "03/15/2024", true},
		{"region code for written name", "OR", true},
		{"region name verbatim", "Oregon", true},
		{"country code for written name", "US", true},
		{"fabricated name", "Jane Doe", false},
		{"fabricated date", "2023-01-01", false},
		{"region code with no support", "CA", false},
		{"paraphrase", "lives in Portland", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, traceable(tt.value, text))
		})
	}
}

func TestContainsValue_ShortTokens(t *testing.T) {
	// Codes must match a whole token with case intact.
	assert.True(t, containsValue("Portland, OR 97201", "OR"))
	assert.False(t, containsValue("one thing or another", "OR"))
	assert.False(t, containsValue("Cascade Avenue", "CA"))

	// Three characters and up fall back to substring matching.
	assert.True(t, containsValue("John Smith, Jr., inventor", "Jr."))
}

func TestContainsDate(t *testing.T) {
	want, err := time.Parse("2006-01-02", "2024-03-15")
	assert.NoError(t, err)

	assert.True(t, containsDate("filed on March 15, 2024.", want))
	assert.True(t, containsDate("Filing Date: 03/15/2024", want))
	assert.True(t, containsDate("(15 March 2024)", want))
	assert.False(t, containsDate("filed on March 16, 2024", want))
	assert.False(t, containsDate("no date here", want))
}

func TestNamesCountry_DottedForm(t *testing.T) {
	assert.True(t, namesCountry("Citizen of the U.S.A.", "US"))
	assert.True(t, namesCountry("a citizen of the United States.", "US"))
	assert.False(t, namesCountry("a citizen of Japan", "US"))
}
