package record

import "strings"

// countryCodes maps country names as cover sheets write them to ISO
// 3166-1 alpha-2 codes. Codes themselves pass through NormalizeCountry
// unchanged when they appear in the value set.
var countryCodes = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"u.s.":                     "US",
	"u.s.a.":                   "US",
	"america":                  "US",
	"united kingdom":           "GB",
	"great britain":            "GB",
	"uk":                       "GB",
	"germany":                  "DE",
	"deutschland":              "DE",
	"japan":                    "JP",
	"france":                   "FR",
	"china":                    "CN",
	"canada":                   "CA",
	"australia":                "AU",
	"south korea":              "KR",
	"republic of korea":        "KR",
	"korea":                    "KR",
	"switzerland":              "CH",
	"netherlands":              "NL",
	"the netherlands":          "NL",
	"sweden":                   "SE",
	"italy":                    "IT",
	"spain":                    "ES",
	"india":                    "IN",
	"israel":                   "IL",
	"taiwan":                   "TW",
	"denmark":                  "DK",
	"finland":                  "FI",
	"norway":                   "NO",
	"belgium":                  "BE",
	"austria":                  "AT",
	"ireland":                  "IE",
	"singapore":                "SG",
	"brazil":                   "BR",
	"mexico":                   "MX",
}

// usStates maps US state and territory names to USPS codes.
var usStates = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
	"puerto rico": "PR",
}

// caProvinces maps Canadian province and territory names to postal codes.
var caProvinces = map[string]string{
	"alberta": "AB", "british columbia": "BC", "manitoba": "MB",
	"new brunswick": "NB", "newfoundland and labrador": "NL",
	"nova scotia": "NS", "ontario": "ON", "prince edward island": "PE",
	"quebec": "QC", "saskatchewan": "SK", "yukon": "YT",
	"northwest territories": "NT", "nunavut": "NU",
}

// regionCountry maps every recognized region code to its country.
var regionCountry = map[string]string{}

func init() {
	for _, code := range usStates {
		regionCountry[code] = "US"
	}
	for _, code := range caProvinces {
		regionCountry[code] = "CA"
	}
}

// NormalizeCountry converts a country as written on a cover sheet to its
// ISO 3166-1 alpha-2 code. Existing codes pass through. ok is false when
// the value is unrecognized.
func NormalizeCountry(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == Unknown {
		return "", false
	}
	if code, ok := countryCodes[v]; ok {
		return code, true
	}
	// Accept a code directly when it is one we emit.
	upper := strings.ToUpper(strings.TrimSpace(s))
	if len(upper) == 2 {
		for _, code := range countryCodes {
			if code == upper {
				return upper, true
			}
		}
	}
	return "", false
}

// NormalizeRegion converts a US state or Canadian province name to its
// two-letter code. Existing codes pass through. ok is false when the
// value is unrecognized.
func NormalizeRegion(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == Unknown {
		return "", false
	}
	if code, ok := usStates[v]; ok {
		return code, true
	}
	if code, ok := caProvinces[v]; ok {
		return code, true
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := regionCountry[upper]; ok {
		return upper, true
	}
	return "", false
}

// RegionCountry returns the country code a recognized region code belongs
// to. Used by the cross-field validator to check region and country agree.
func RegionCountry(region string) (string, bool) {
	c, ok := regionCountry[strings.ToUpper(strings.TrimSpace(region))]
	return c, ok
}
