package correction

import (
	"strconv"
	"strings"

	"github.com/coverlight/intake/quality"
	"github.com/coverlight/intake/record"
)

// task is one field the loop will try to fix: where it lives, what is
// wrong with it, and the evidence quotes the model gets to work from.
type task struct {
	path    string
	invalid string
	reason  string
	missing bool
	quotes  []record.EvidenceRecord
}

// buildTasks collects the recoverable deficiencies: field-format
// failures on patchable paths plus required fields that are missing
// despite supporting evidence. Contamination and cross-field findings
// stay with the human reviewer.
func (l *Loop) buildTasks(res *record.ExtractionResult) []task {
	index := res.EvidenceIndex()
	seen := make(map[string]bool)
	var tasks []task

	for _, r := range latestFieldResults(res.Validations) {
		if r.IsValid || seen[r.FieldName] {
			continue
		}
		slot, ok := resolveSlot(res, r.FieldName)
		if !ok {
			continue
		}
		seen[r.FieldName] = true
		tasks = append(tasks, task{
			path:    r.FieldName,
			invalid: *slot,
			reason:  strings.Join(r.Errors, "; "),
			quotes:  fieldQuotes(res, index, r.FieldName),
		})
	}

	for _, f := range quality.MissingRequired(res) {
		if seen[f.Path] {
			continue
		}
		if _, ok := resolveSlot(res, f.Path); !ok {
			continue
		}
		quotes := categoryQuotes(index, f.Categories)
		if len(quotes) == 0 {
			// Nothing gathered could evidence the field; asking the
			// model would invite a guess.
			continue
		}
		seen[f.Path] = true
		tasks = append(tasks, task{
			path:    f.Path,
			reason:  "required field is missing",
			missing: true,
			quotes:  quotes,
		})
	}
	return tasks
}

// latestFieldResults keeps the newest field-check result per path, in
// first-seen order.
func latestFieldResults(results []record.ValidationResult) []record.ValidationResult {
	idx := make(map[string]int)
	var out []record.ValidationResult
	for _, r := range results {
		if r.Check != record.CheckField {
			continue
		}
		if i, ok := idx[r.FieldName]; ok {
			out[i] = r
			continue
		}
		idx[r.FieldName] = len(out)
		out = append(out, r)
	}
	return out
}

// resolveSlot maps a field path to the string it names inside the
// result. Composite paths (addresses) and aggregate paths have no
// single slot and resolve false.
func resolveSlot(res *record.ExtractionResult, path string) (*string, bool) {
	head, field, ok := strings.Cut(path, ".")
	if !ok {
		return nil, false
	}
	name, idx, indexed := cutIndex(head)

	switch {
	case !indexed && head == "application_info":
		app := &res.ApplicationInfo
		switch field {
		case "title":
			return &app.Title, true
		case "docket_number":
			return &app.DocketNumber, true
		case "application_number":
			return &app.ApplicationNumber, true
		case "filing_date":
			return &app.FilingDate, true
		case "entity_status":
			return &app.EntityStatus, true
		}
	case !indexed && head == "correspondence":
		corr := &res.Correspondence
		switch field {
		case "name":
			return &corr.Name, true
		case "email":
			return &corr.Email, true
		case "phone":
			return &corr.Phone, true
		case "customer_number":
			return &corr.CustomerNumber, true
		}
	case indexed && name == "persons" && idx < len(res.Persons):
		p := &res.Persons[idx]
		switch field {
		case "given_name":
			return &p.GivenName, true
		case "middle_name":
			return &p.MiddleName, true
		case "family_name":
			return &p.FamilyName, true
		case "suffix":
			return &p.Suffix, true
		case "residence":
			return &p.Residence, true
		case "email":
			return &p.Email, true
		case "phone":
			return &p.Phone, true
		}
	case indexed && name == "organizations" && idx < len(res.Organizations):
		o := &res.Organizations[idx]
		switch field {
		case "name":
			return &o.Name, true
		case "representative":
			return &o.Representative, true
		case "email":
			return &o.Email, true
		case "phone":
			return &o.Phone, true
		}
	case indexed && name == "priority_claims" && idx < len(res.PriorityClaims):
		c := &res.PriorityClaims[idx]
		switch field {
		case "prior_application_number":
			return &c.PriorAppID, true
		case "filing_date":
			return &c.FilingDate, true
		}
	}
	return nil, false
}

// cutIndex splits "persons[2]" into ("persons", 2, true).
func cutIndex(s string) (string, int, bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || n < 0 {
		return s, 0, false
	}
	return s[:open], n, true
}

// maxQuotes bounds how much evidence a correction prompt carries.
const maxQuotes = 6

// fieldQuotes finds the evidence behind one field: its provenance
// records first, the owning candidate's evidence next, the path's
// categories as a last resort.
func fieldQuotes(res *record.ExtractionResult, index *record.EvidenceSet, path string) []record.EvidenceRecord {
	ids := provenanceIDs(res, path)
	var out []record.EvidenceRecord
	for _, id := range ids {
		if rec, ok := index.ByID(id); ok {
			out = append(out, rec)
		}
		if len(out) == maxQuotes {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	return categoryQuotes(index, pathCategories(res, path))
}

// provenanceIDs returns the evidence IDs recorded for a path, falling
// back to the owning record's full evidence list.
func provenanceIDs(res *record.ExtractionResult, path string) []string {
	head, field, _ := strings.Cut(path, ".")
	name, idx, indexed := cutIndex(head)
	switch {
	case !indexed && head == "application_info":
		return res.ApplicationInfo.Evidence
	case !indexed && head == "correspondence":
		return res.Correspondence.Evidence
	case indexed && name == "persons" && idx < len(res.Persons):
		p := res.Persons[idx]
		if origin, ok := p.Provenance[field]; ok && len(origin.EvidenceIDs) > 0 {
			return origin.EvidenceIDs
		}
		return p.Evidence
	case indexed && name == "organizations" && idx < len(res.Organizations):
		o := res.Organizations[idx]
		if origin, ok := o.Provenance[field]; ok && len(origin.EvidenceIDs) > 0 {
			return origin.EvidenceIDs
		}
		return o.Evidence
	case indexed && name == "priority_claims" && idx < len(res.PriorityClaims):
		return res.PriorityClaims[idx].Evidence
	}
	return nil
}

// pathCategories maps a path to the evidence categories that could
// support it.
func pathCategories(res *record.ExtractionResult, path string) []record.FieldCategory {
	head, _, _ := strings.Cut(path, ".")
	name, idx, indexed := cutIndex(head)
	switch {
	case !indexed && head == "application_info":
		return []record.FieldCategory{record.CategoryApplicationInfo}
	case !indexed && head == "correspondence":
		return []record.FieldCategory{record.CategoryCorrespondence}
	case indexed && name == "persons" && idx < len(res.Persons):
		switch res.Persons[idx].Role {
		case record.RoleInventor:
			return []record.FieldCategory{record.CategoryInventor}
		case record.RoleAttorney:
			return []record.FieldCategory{record.CategoryCorrespondence}
		default:
			return []record.FieldCategory{record.CategoryApplicant}
		}
	case indexed && name == "organizations":
		return []record.FieldCategory{record.CategoryApplicant, record.CategoryCorrespondence}
	case indexed && name == "priority_claims":
		return []record.FieldCategory{record.CategoryPriorityClaim}
	}
	return nil
}

func categoryQuotes(index *record.EvidenceSet, categories []record.FieldCategory) []record.EvidenceRecord {
	var out []record.EvidenceRecord
	for _, cat := range categories {
		for _, rec := range index.ByCategory(cat) {
			out = append(out, rec)
			if len(out) == maxQuotes {
				return out
			}
		}
	}
	return out
}
