package record

import "strings"

// corporateSuffixes are the legal entity designators that mark a name as
// an organization. Keys are lowercase with punctuation stripped.
var corporateSuffixes = map[string]bool{
	"inc": true, "incorporated": true,
	"llc": true, "llp": true, "lp": true, "plc": true, "pllc": true,
	"ltd": true, "limited": true,
	"corp": true, "corporation": true,
	"co": true, "company": true,
	"gmbh": true, "ag": true, "kg": true, "sa": true, "srl": true, "sarl": true,
	"bv": true, "nv": true, "ab": true, "oy": true, "aps": true,
	"kk": true, "pty": true, "sas": true, "spa": true,
}

// organizationKeywords are words that read as an organization rather
// than a person, wherever they sit in the name.
var organizationKeywords = map[string]bool{
	"university": true, "institute": true, "foundation": true,
	"laboratory": true, "laboratories": true, "labs": true,
	"technologies": true, "systems": true, "solutions": true,
	"holdings": true, "enterprises": true, "industries": true,
	"ventures": true, "partners": true, "associates": true,
	"consulting": true, "group": true, "trust": true,
}

// businessAddressTokens are address words that belong to commercial
// premises, not residences.
var businessAddressTokens = map[string]bool{
	"suite": true, "ste": true,
	"floor": true, "fl": true,
	"bldg": true, "building": true,
	"plaza": true, "tower": true,
	"office": true, "dept": true, "department": true,
	"attn": true, "attention": true,
}

// lexToken lowercases a token and strips surrounding punctuation for
// lexicon lookups.
func lexToken(tok string) string {
	return strings.Trim(strings.ToLower(tok), ".,;:()#\"'")
}

// IsCorporateSuffix reports whether tok is a legal entity designator
// ("Inc", "LLC", "GmbH"). Case and trailing punctuation are ignored.
func IsCorporateSuffix(tok string) bool {
	return corporateSuffixes[lexToken(tok)]
}

// CorporateMarker returns the first token of name that is a corporate
// suffix or organization keyword, if any. A hit means the name reads as
// an organization.
func CorporateMarker(name string) (string, bool) {
	for _, tok := range strings.Fields(name) {
		t := lexToken(tok)
		if corporateSuffixes[t] || organizationKeywords[t] {
			return tok, true
		}
	}
	return "", false
}

// BusinessAddressMarker returns the first token of the address line that
// belongs to commercial premises, if any.
func BusinessAddressMarker(line string) (string, bool) {
	for _, tok := range strings.Fields(line) {
		if businessAddressTokens[lexToken(tok)] {
			return tok, true
		}
	}
	return "", false
}
