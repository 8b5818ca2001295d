package record

import (
	"fmt"
	"strings"
	"time"
)

// CanonicalDate is the layout every stored date uses.
const CanonicalDate = "2006-01-02"

// dateLayouts covers the formats cover sheets actually use: ISO, US
// slash and dash forms, written-out months, and European day-first.
var dateLayouts = []string{
	CanonicalDate,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"02.01.2006",
}

// ParseDate parses a date string in any recognized layout.
func ParseDate(s string) (time.Time, error) {
	v := strings.Join(strings.Fields(s), " ")
	if IsUnknown(v) {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// NormalizeDate converts a recognized date string to canonical
// YYYY-MM-DD form.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(CanonicalDate), nil
}
