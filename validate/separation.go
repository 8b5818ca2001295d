package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/coverlight/intake/record"
)

// Report is the separation validator's cross-set summary. Findings are
// advisory: contamination is surfaced for a human, never repaired in
// place.
type Report struct {
	// Results holds one result per finding plus the cross-set summary.
	Results []record.ValidationResult

	// Suggestions are concrete remediation steps, one per error.
	Suggestions []string

	// ErrorCount counts separation errors across both candidate sets.
	ErrorCount int

	// WarningCount counts separation warnings.
	WarningCount int
}

// Contaminated reports whether any separation error was found. Any
// error forces manual review on the final result.
func (r Report) Contaminated() bool {
	return r.ErrorCount > 0
}

// Separation checks that person and organization candidates stay in
// their lanes: a corporate indicator in a person's name is an error, a
// business token in a person's address is a warning, an organization
// with neither a name nor a representative is an error.
func (v *Validator) Separation(persons []record.PersonCandidate, orgs []record.OrgCandidate) Report {
	var report Report

	for i, p := range persons {
		for _, nf := range personNameFields(p) {
			if record.IsUnknown(nf.value) {
				continue
			}
			marker, ok := v.corporateMarker(nf.value)
			if !ok {
				continue
			}
			path := fmt.Sprintf("persons[%d].%s", i, nf.name)
			v.logger.Warn("contamination finding",
				"field", path, "value", nf.value, "marker", marker,
				"evidence", fieldEvidence(p.Provenance, nf.name, p.Evidence))
			report.add(record.ValidationResult{
				FieldName:       path,
				Check:           record.CheckSeparation,
				IsValid:         false,
				Errors:          []string{fmt.Sprintf("person name field contains corporate indicator %q", marker)},
				ConfidenceScore: 0.9,
			})
			report.Suggestions = append(report.Suggestions, v.nameSuggestion(nf.value, path, orgs))
		}

		for _, line := range []string{p.Address.Street1, p.Address.Street2} {
			if record.IsUnknown(line) {
				continue
			}
			marker, ok := v.businessMarker(line)
			if !ok {
				continue
			}
			path := fmt.Sprintf("persons[%d].address", i)
			v.logger.Info("business token in person address",
				"field", path, "line", line, "marker", marker,
				"evidence", fieldEvidence(p.Provenance, "address.street1", p.Evidence))
			report.add(record.ValidationResult{
				FieldName:       path,
				Check:           record.CheckSeparation,
				IsValid:         true,
				Warnings:        []string{fmt.Sprintf("address line contains business token %q; may be an organization address", marker)},
				ConfidenceScore: 0.7,
			})
			break
		}
	}

	for j, o := range orgs {
		if o.Identified() {
			continue
		}
		path := fmt.Sprintf("organizations[%d]", j)
		v.logger.Warn("unidentifiable organization candidate",
			"field", path, "evidence", o.Evidence)
		report.add(record.ValidationResult{
			FieldName:       path,
			Check:           record.CheckSeparation,
			IsValid:         false,
			Errors:          []string{"organization has neither a name nor a named representative"},
			ConfidenceScore: 0.9,
		})
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("supply a name or representative for %s, or remove the candidate", path))
	}

	summary := record.ValidationResult{
		FieldName:       "separation",
		Check:           record.CheckSeparation,
		IsValid:         report.ErrorCount == 0,
		Warnings:        report.Suggestions,
		ConfidenceScore: 1.0,
	}
	if report.ErrorCount > 0 {
		summary.Errors = []string{fmt.Sprintf(
			"%d separation error(s) across %d person and %d organization candidate(s)",
			report.ErrorCount, len(persons), len(orgs))}
	}
	report.Results = append(report.Results, summary)
	return report
}

// add appends a finding and keeps the error and warning tallies current.
func (r *Report) add(res record.ValidationResult) {
	r.Results = append(r.Results, res)
	r.ErrorCount += len(res.Errors)
	r.WarningCount += len(res.Warnings)
}

// nameSuggestion proposes where a contaminated person name value should
// live: the matching organization candidate when one exists, a new one
// otherwise.
func (v *Validator) nameSuggestion(value, path string, orgs []record.OrgCandidate) string {
	key := foldName(value)
	for _, o := range orgs {
		if record.IsUnknown(o.Name) {
			continue
		}
		ok := foldName(o.Name)
		if ok == key || strings.Contains(ok, key) || strings.Contains(key, ok) {
			return fmt.Sprintf("move %q from %s to organization candidate %s (%q)", value, path, o.ID, o.Name)
		}
	}
	return fmt.Sprintf("move %q from %s to a new organization candidate's name field", value, path)
}

type nameField struct {
	name  string
	value string
}

func personNameFields(p record.PersonCandidate) []nameField {
	return []nameField{
		{"given_name", p.GivenName},
		{"middle_name", p.MiddleName},
		{"family_name", p.FamilyName},
		{"suffix", p.Suffix},
	}
}

// fieldEvidence returns the evidence behind one field, falling back to
// the candidate's full evidence list when no per-field origin exists.
func fieldEvidence(prov map[string]record.FieldOrigin, field string, fallback []string) []string {
	if origin, ok := prov[field]; ok && len(origin.EvidenceIDs) > 0 {
		return origin.EvidenceIDs
	}
	return fallback
}

// foldName lowercases and strips punctuation for loose name comparison.
func foldName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
