package generate

import (
	"strings"
	"time"

	"github.com/coverlight/intake/record"
)

// normalizeForMatch collapses whitespace and case so values rewrapped by
// chunking still match their quotes.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// traceable reports whether value is supported by the evidence text: a
// verbatim occurrence up to whitespace and case, or the same date,
// region, or country written another way. Anything else counts as
// fabricated.
func traceable(value, text string) bool {
	if record.IsUnknown(value) {
		return true
	}
	if containsValue(text, value) {
		return true
	}
	if want, err := record.ParseDate(value); err == nil && containsDate(text, want) {
		return true
	}
	if code, ok := record.NormalizeRegion(value); ok && namesRegion(text, code) {
		return true
	}
	if code, ok := record.NormalizeCountry(value); ok && namesCountry(text, code) {
		return true
	}
	return false
}

// containsValue reports whether text carries value verbatim, up to
// whitespace collapse and case. Values shorter than three characters
// must match a whole token with case intact, so a state code is not
// found inside an unrelated word.
func containsValue(text, value string) bool {
	nv := normalizeForMatch(value)
	if nv == "" {
		return false
	}
	if len(nv) >= 3 {
		return strings.Contains(normalizeForMatch(text), nv)
	}
	want := strings.Trim(strings.Join(strings.Fields(value), " "), ",.;:()'\"")
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, ",.;:()'\"") == want {
			return true
		}
	}
	return false
}

// containsDate scans text for a date in any recognized layout equal to
// want. Dates span at most four tokens ("January 2, 2006").
func containsDate(text string, want time.Time) bool {
	fields := strings.Fields(text)
	for i := range fields {
		for n := 1; n <= 4 && i+n <= len(fields); n++ {
			cand := strings.Trim(strings.Join(fields[i:i+n], " "), ",;:()'\"")
			cand = strings.TrimSuffix(cand, ".")
			if got, err := record.ParseDate(cand); err == nil && got.Equal(want) {
				return true
			}
		}
	}
	return false
}

// namesRegion reports whether text writes out the region whose code is
// code, or carries the code itself as a token.
func namesRegion(text, code string) bool {
	fields := strings.Fields(text)
	for i := range fields {
		if strings.Trim(fields[i], ",.;:()'\"") == code {
			return true
		}
		for n := 1; n <= 3 && i+n <= len(fields); n++ {
			cand := strings.Trim(strings.Join(fields[i:i+n], " "), ",.;:()'\"")
			if got, ok := record.NormalizeRegion(cand); ok && got == code && !strings.EqualFold(cand, code) {
				return true
			}
		}
	}
	return false
}

// namesCountry reports whether text writes out the country whose code is
// code, or carries the code itself as a token. Dotted forms ("U.S.A.")
// keep their dots for the lookup.
func namesCountry(text, code string) bool {
	fields := strings.Fields(text)
	for i := range fields {
		if strings.TrimSuffix(strings.Trim(fields[i], ",;:()'\""), ".") == code {
			return true
		}
		for n := 1; n <= 4 && i+n <= len(fields); n++ {
			cand := strings.Trim(strings.Join(fields[i:i+n], " "), ",;:()'\"")
			if countryMatches(cand, code) || countryMatches(strings.TrimSuffix(cand, "."), code) {
				return true
			}
		}
	}
	return false
}

func countryMatches(cand, code string) bool {
	got, ok := record.NormalizeCountry(cand)
	return ok && got == code && !strings.EqualFold(cand, code)
}
