package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coverlight/intake/record"
)

// Identifier and contact formats, per filing-office convention.
var (
	// serialNumberRe matches a bare 8-digit application number.
	serialNumberRe = regexp.MustCompile(`^\d{8}$`)
	// seriesFormRe matches the written NN/NNN,NNN series form.
	seriesFormRe = regexp.MustCompile(`^\d{2}/\d{3},?\d{3}$`)
	// emailRe matches a plausible mailbox address.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	// customerNumberRe matches a practitioner customer number.
	customerNumberRe = regexp.MustCompile(`^\d{5,7}$`)
)

// minFilingYear bounds plausible filing dates from below. The office
// has issued patents since 1790.
const minFilingYear = 1790

// Fields runs the single-field format checks over every populated
// field of the result. Unknown fields are skipped: missing data is the
// scorer's completeness concern, not a format failure.
func (v *Validator) Fields(res *record.ExtractionResult) []record.ValidationResult {
	if res == nil {
		return nil
	}
	var out []record.ValidationResult
	add := func(r record.ValidationResult) { out = append(out, r) }

	app := res.ApplicationInfo
	if record.Known(app.ApplicationNumber) {
		add(checkApplicationNumber("application_info.application_number", app.ApplicationNumber))
	}
	if record.Known(app.FilingDate) {
		add(checkDate("application_info.filing_date", app.FilingDate))
	}

	for i, c := range res.PriorityClaims {
		if record.Known(c.PriorAppID) && c.Kind == record.ClaimDomestic {
			add(checkApplicationNumber(fmt.Sprintf("priority_claims[%d].prior_application_number", i), c.PriorAppID))
		}
		if record.Known(c.FilingDate) {
			add(checkDate(fmt.Sprintf("priority_claims[%d].filing_date", i), c.FilingDate))
		}
	}

	for i, p := range res.Persons {
		prefix := fmt.Sprintf("persons[%d]", i)
		if record.Known(p.Email) {
			add(checkEmail(prefix+".email", p.Email))
		}
		if record.Known(p.Phone) {
			add(checkPhone(prefix+".phone", p.Phone))
		}
		if !p.Address.Empty() {
			add(checkAddress(prefix+".address", p.Address))
		}
	}

	for i, o := range res.Organizations {
		prefix := fmt.Sprintf("organizations[%d]", i)
		if record.Known(o.Email) {
			add(checkEmail(prefix+".email", o.Email))
		}
		if record.Known(o.Phone) {
			add(checkPhone(prefix+".phone", o.Phone))
		}
		if !o.Address.Empty() {
			add(checkAddress(prefix+".address", o.Address))
		}
	}

	corr := res.Correspondence
	if record.Known(corr.Email) {
		add(checkEmail("correspondence.email", corr.Email))
	}
	if record.Known(corr.Phone) {
		add(checkPhone("correspondence.phone", corr.Phone))
	}
	if record.Known(corr.CustomerNumber) {
		add(checkCustomerNumber("correspondence.customer_number", corr.CustomerNumber))
	}
	if !corr.Address.Empty() {
		add(checkAddress("correspondence.address", corr.Address))
	}

	v.logger.Debug("field validation", "checks", len(out), "failed", countInvalid(out))
	return out
}

// Field re-runs the single-field checks and returns the result for one
// path. The correction loop uses it to judge a patched value without
// re-running the rest of the suite. ok is false when the path carries
// no format check.
func (v *Validator) Field(res *record.ExtractionResult, path string) (record.ValidationResult, bool) {
	for _, r := range v.Fields(res) {
		if r.FieldName == path {
			return r, true
		}
	}
	return record.ValidationResult{}, false
}

// checkApplicationNumber accepts the bare 8-digit serial or the written
// NN/NNN,NNN series form and normalizes both to the bare digits.
func checkApplicationNumber(path, value string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	trimmed := strings.TrimSpace(value)
	if serialNumberRe.MatchString(trimmed) {
		res.IsValid = true
		res.NormalizedValue = trimmed
		return res
	}
	if seriesFormRe.MatchString(trimmed) {
		res.IsValid = true
		res.NormalizedValue = strings.NewReplacer("/", "", ",", "").Replace(trimmed)
		return res
	}
	res.Errors = []string{fmt.Sprintf("%q is not an 8-digit serial or NN/NNN,NNN application number", value)}
	return res
}

// checkDate requires a parseable date between 1790 and today.
func checkDate(path, value string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	t, err := record.ParseDate(value)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("%q is not a recognizable date", value)}
		return res
	}
	switch {
	case t.Year() < minFilingYear:
		res.Errors = []string{fmt.Sprintf("date %s predates the filing system", t.Format(record.CanonicalDate))}
	case t.After(time.Now()):
		res.Errors = []string{fmt.Sprintf("date %s is in the future", t.Format(record.CanonicalDate))}
	default:
		res.IsValid = true
	}
	res.NormalizedValue = t.Format(record.CanonicalDate)
	return res
}

func checkEmail(path, value string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !emailRe.MatchString(normalized) {
		res.Errors = []string{fmt.Sprintf("%q is not a valid email address", value)}
		return res
	}
	res.IsValid = true
	res.NormalizedValue = normalized
	return res
}

// checkPhone accepts 7 to 15 digits, ignoring separators. The
// normalized form keeps a leading + and the digits.
func checkPhone(path, value string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	normalized, digits := normalizePhone(value)
	if digits < 7 || digits > 15 {
		res.Errors = []string{fmt.Sprintf("%q is not a plausible phone number", value)}
		return res
	}
	res.IsValid = true
	res.NormalizedValue = normalized
	return res
}

func checkCustomerNumber(path, value string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	trimmed := strings.TrimSpace(value)
	if !customerNumberRe.MatchString(trimmed) {
		res.Errors = []string{fmt.Sprintf("%q is not a 5-7 digit customer number", value)}
		return res
	}
	res.IsValid = true
	res.NormalizedValue = trimmed
	return res
}

// checkAddress requires street, city, and country; US addresses also
// need a region and postal code to be mailable.
func checkAddress(path string, addr record.Address) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckField, ConfidenceScore: 1.0}
	var missing []string
	if record.IsUnknown(addr.Street1) {
		missing = append(missing, "street")
	}
	if record.IsUnknown(addr.City) {
		missing = append(missing, "city")
	}
	if record.IsUnknown(addr.Country) {
		missing = append(missing, "country")
	} else if strings.EqualFold(strings.TrimSpace(addr.Country), "US") {
		if record.IsUnknown(addr.Region) {
			missing = append(missing, "region")
		}
		if record.IsUnknown(addr.PostalCode) {
			missing = append(missing, "postal code")
		}
	}
	if len(missing) > 0 {
		res.Errors = []string{fmt.Sprintf("address incomplete: missing %s", strings.Join(missing, ", "))}
		return res
	}
	res.IsValid = true
	return res
}

// normalizePhone strips separators, keeping a leading + and the digits.
func normalizePhone(value string) (string, int) {
	var b strings.Builder
	digits := 0
	for i, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String(), digits
}

func countInvalid(results []record.ValidationResult) int {
	n := 0
	for _, r := range results {
		if !r.IsValid {
			n++
		}
	}
	return n
}
