package validate

import (
	"fmt"
	"strings"

	"github.com/coverlight/intake/record"
)

// CrossFields runs the relationship checks: region against country,
// priority dates against the filing date, and applicant candidates
// against the named inventors. A check only runs when the fields it
// relates are populated.
func (v *Validator) CrossFields(res *record.ExtractionResult) []record.ValidationResult {
	if res == nil {
		return nil
	}
	var out []record.ValidationResult

	for i, p := range res.Persons {
		if r, ok := checkGeography(fmt.Sprintf("persons[%d].address", i), p.Address); ok {
			out = append(out, r)
		}
	}
	for i, o := range res.Organizations {
		if r, ok := checkGeography(fmt.Sprintf("organizations[%d].address", i), o.Address); ok {
			out = append(out, r)
		}
	}
	if r, ok := checkGeography("correspondence.address", res.Correspondence.Address); ok {
		out = append(out, r)
	}

	if record.Known(res.ApplicationInfo.FilingDate) {
		for i, c := range res.PriorityClaims {
			if !record.Known(c.FilingDate) {
				continue
			}
			out = append(out, checkDateOrder(
				fmt.Sprintf("priority_claims[%d].filing_date", i),
				c.FilingDate, res.ApplicationInfo.FilingDate))
		}
	}

	out = append(out, checkApplicantLinkage(res.Persons)...)

	v.logger.Debug("cross-field validation", "checks", len(out), "failed", countInvalid(out))
	return out
}

// checkGeography verifies that a region code belongs to the stated
// country. Runs only when both are populated and the region is one the
// code table knows.
func checkGeography(path string, addr record.Address) (record.ValidationResult, bool) {
	if record.IsUnknown(addr.Region) || record.IsUnknown(addr.Country) {
		return record.ValidationResult{}, false
	}
	region, ok := record.NormalizeRegion(addr.Region)
	if !ok {
		region = strings.ToUpper(strings.TrimSpace(addr.Region))
	}
	wantCountry, ok := record.RegionCountry(region)
	if !ok {
		return record.ValidationResult{}, false
	}
	country := addr.Country
	if code, ok := record.NormalizeCountry(country); ok {
		country = code
	}
	res := record.ValidationResult{FieldName: path, Check: record.CheckCrossField, ConfidenceScore: 1.0}
	if country == wantCountry {
		res.IsValid = true
		return res, true
	}
	res.Errors = []string{fmt.Sprintf("region %s belongs to %s, not %s", region, wantCountry, country)}
	return res, true
}

// checkDateOrder requires a priority claim's filing date to strictly
// precede the application's filing date.
func checkDateOrder(path, claimDate, filingDate string) record.ValidationResult {
	res := record.ValidationResult{FieldName: path, Check: record.CheckCrossField, ConfidenceScore: 1.0}
	ct, err := record.ParseDate(claimDate)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("%q is not a recognizable date", claimDate)}
		return res
	}
	ft, err := record.ParseDate(filingDate)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("filing date %q is not a recognizable date", filingDate)}
		return res
	}
	if !ct.Before(ft) {
		res.Errors = []string{fmt.Sprintf("priority date %s does not precede filing date %s",
			ct.Format(record.CanonicalDate), ft.Format(record.CanonicalDate))}
		return res
	}
	res.IsValid = true
	return res
}

// checkApplicantLinkage flags applicant persons who do not correspond
// to any named inventor. The relationship stays unclear rather than
// wrong, so the finding is a warning that fails the consistency check
// without forcing review.
func checkApplicantLinkage(persons []record.PersonCandidate) []record.ValidationResult {
	var out []record.ValidationResult
	for i, p := range persons {
		if p.Role != record.RoleApplicant || !p.Named() {
			continue
		}
		res := record.ValidationResult{
			FieldName:       fmt.Sprintf("persons[%d]", i),
			Check:           record.CheckCrossField,
			ConfidenceScore: 0.6,
		}
		if matchesAnInventor(p, persons) {
			res.IsValid = true
			res.ConfidenceScore = 1.0
		} else {
			res.Warnings = []string{fmt.Sprintf(
				"applicant %q does not correspond to any named inventor; relationship unclear", p.FullName())}
		}
		out = append(out, res)
	}
	return out
}

func matchesAnInventor(p record.PersonCandidate, persons []record.PersonCandidate) bool {
	if !record.Known(p.FamilyName) {
		return false
	}
	for _, q := range persons {
		if q.Role != record.RoleInventor || !record.Known(q.FamilyName) {
			continue
		}
		if foldName(p.FamilyName) != foldName(q.FamilyName) {
			continue
		}
		var pg, qg string
		if record.Known(p.GivenName) {
			pg = foldName(p.GivenName)
		}
		if record.Known(q.GivenName) {
			qg = foldName(q.GivenName)
		}
		if pg == "" || qg == "" || pg == qg || pg[0] == qg[0] {
			return true
		}
	}
	return false
}
