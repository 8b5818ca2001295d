package consolidate

import (
	"strings"
	"unicode"

	"github.com/coverlight/intake/record"
)

// Similarity weights. Names carry the most identity, addresses almost as
// much, contact details the rest.
const (
	weightName    = 0.40
	weightAddress = 0.35
	weightContact = 0.25
)

// PersonSimilarity scores how likely two person candidates describe the
// same person, in [0, 1].
func PersonSimilarity(a, b record.PersonCandidate) float64 {
	return weightName*personNameScore(a, b) +
		weightAddress*addressScore(a.Address, b.Address) +
		weightContact*contactScore(a.Email, a.Phone, b.Email, b.Phone)
}

// OrgSimilarity scores how likely two organization candidates describe
// the same organization, in [0, 1].
func OrgSimilarity(a, b record.OrgCandidate) float64 {
	return weightName*orgNameScore(a, b) +
		weightAddress*addressScore(a.Address, b.Address) +
		weightContact*contactScore(a.Email, a.Phone, b.Email, b.Phone)
}

// personNameScore compares person names: 1.0 for an exact match, 0.85
// when one reads as a shortening of the other (dropped middle name,
// initials), 0 otherwise. The family name must agree either way; without
// one there is no identity to compare.
func personNameScore(a, b record.PersonCandidate) float64 {
	if record.IsUnknown(a.FamilyName) || record.IsUnknown(b.FamilyName) {
		return 0
	}
	if nameKey(a.FamilyName) != nameKey(b.FamilyName) {
		return 0
	}
	ag, bg := givenTokens(a), givenTokens(b)
	if len(ag) == len(bg) && tokensEqual(ag, bg) {
		return 1.0
	}
	if initialsMatch(ag, bg) {
		return 0.85
	}
	return 0
}

// orgNameScore compares organization names: 1.0 when the normalized
// names agree, 0.85 when they agree once corporate suffixes drop off.
func orgNameScore(a, b record.OrgCandidate) float64 {
	if record.IsUnknown(a.Name) || record.IsUnknown(b.Name) {
		return 0
	}
	an, bn := nameKey(a.Name), nameKey(b.Name)
	if an == "" || bn == "" {
		return 0
	}
	if an == bn {
		return 1.0
	}
	if sa, sb := stripOrgSuffix(an), stripOrgSuffix(bn); sa != "" && sa == sb {
		return 0.85
	}
	return 0
}

// addressScore compares mailing addresses: 1.0 for the same street line,
// 0.70 for the same city and region, 0.50 for the same postal code.
func addressScore(a, b record.Address) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	if sk := streetKey(a.Street1); sk != "" && sk == streetKey(b.Street1) {
		return 1.0
	}
	if ck := cityRegionKey(a); ck != "" && ck == cityRegionKey(b) {
		return 0.70
	}
	if record.Known(a.PostalCode) && nameKey(a.PostalCode) == nameKey(b.PostalCode) {
		return 0.50
	}
	return 0
}

// contactScore is 1.0 when the two candidates share an email address or
// phone number.
func contactScore(aEmail, aPhone, bEmail, bPhone string) float64 {
	if record.Known(aEmail) && strings.EqualFold(strings.TrimSpace(aEmail), strings.TrimSpace(bEmail)) {
		return 1.0
	}
	if ap := digitsOf(aPhone); len(ap) >= 7 && ap == digitsOf(bPhone) {
		return 1.0
	}
	return 0
}

// nameKey lowercases a value and strips everything but letters, digits,
// and spaces for comparison.
func nameKey(s string) string {
	if record.IsUnknown(s) {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// givenTokens are the normalized given and middle name tokens.
func givenTokens(p record.PersonCandidate) []string {
	parts := make([]string, 0, 2)
	if record.Known(p.GivenName) {
		parts = append(parts, p.GivenName)
	}
	if record.Known(p.MiddleName) {
		parts = append(parts, p.MiddleName)
	}
	return strings.Fields(nameKey(strings.Join(parts, " ")))
}

func tokensEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// initialsMatch reports whether the shorter token list reads as a
// shortening of the longer: equal tokens, initials, or absent trailing
// tokens. "j" matches "john"; "john" matches "john a".
func initialsMatch(a, b []string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	j := 0
	for _, s := range a {
		ok := false
		for j < len(b) {
			t := b[j]
			j++
			if s == t || (len(s) == 1 && strings.HasPrefix(t, s)) || (len(t) == 1 && strings.HasPrefix(s, t)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// stripOrgSuffix drops trailing corporate suffix tokens from a name key.
func stripOrgSuffix(key string) string {
	toks := strings.Fields(key)
	for len(toks) > 0 && record.IsCorporateSuffix(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	return strings.Join(toks, " ")
}

// streetAbbrev expands the street suffix abbreviations cover sheets mix
// freely, so "100 Main St" and "100 Main Street" compare equal.
var streetAbbrev = map[string]string{
	"st": "street", "ave": "avenue", "rd": "road", "dr": "drive",
	"blvd": "boulevard", "ln": "lane", "ct": "court", "pl": "place",
	"hwy": "highway", "pkwy": "parkway", "ste": "suite", "apt": "apartment",
	"n": "north", "s": "south", "e": "east", "w": "west",
}

// streetKey normalizes a street line for comparison.
func streetKey(street string) string {
	toks := strings.Fields(nameKey(street))
	for i, tok := range toks {
		if full, ok := streetAbbrev[tok]; ok {
			toks[i] = full
		}
	}
	return strings.Join(toks, " ")
}

// cityRegionKey pairs city and region for comparison; empty unless both
// are known.
func cityRegionKey(a record.Address) string {
	if record.IsUnknown(a.City) || record.IsUnknown(a.Region) {
		return ""
	}
	region := a.Region
	if code, ok := record.NormalizeRegion(region); ok {
		region = code
	}
	return nameKey(a.City) + "|" + strings.ToUpper(strings.TrimSpace(region))
}

// digitsOf keeps only the digits of a phone number.
func digitsOf(s string) string {
	if record.IsUnknown(s) {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
