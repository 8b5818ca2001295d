package generate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/coverlight/intake/record"
)

// Which evidence categories can support which record kind. A citation
// outside the set does not count as support.
var (
	personCategories = map[record.FieldCategory]bool{
		record.CategoryInventor:       true,
		record.CategoryApplicant:      true,
		record.CategoryCorrespondence: true,
	}
	orgCategories = map[record.FieldCategory]bool{
		record.CategoryApplicant:      true,
		record.CategoryCorrespondence: true,
	}
	claimCategories = map[record.FieldCategory]bool{
		record.CategoryPriorityClaim: true,
	}
	correspondenceCategories = map[record.FieldCategory]bool{
		record.CategoryCorrespondence: true,
	}
	applicationCategories = map[record.FieldCategory]bool{
		record.CategoryApplicationInfo: true,
	}
	classificationCategories = map[record.FieldCategory]bool{
		record.CategoryClassification: true,
	}
)

// buildDraft converts the parsed reply into record candidates, enforcing
// the evidence-or-null contract: every record must cite evidence that
// exists and can support it, and every populated field must appear in
// the cited quotes. Violations cost the field or the record, never the
// run.
func (g *Generator) buildDraft(reply *draftReply, refs map[string]record.EvidenceRecord) *Draft {
	d := &Draft{}

	for i, rp := range reply.Persons {
		label := fmt.Sprintf("persons[%d]", i)
		recs := resolveRefs(rp.Evidence, personCategories, refs, label, &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: no usable evidence cited; dropped", label))
			continue
		}
		p := buildPerson(rp, recs, label, &d.Warnings)
		if !p.Named() {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: no name survived enforcement; dropped", label))
			continue
		}
		d.Persons = append(d.Persons, p)
	}

	for i, ro := range reply.Organizations {
		label := fmt.Sprintf("organizations[%d]", i)
		recs := resolveRefs(ro.Evidence, orgCategories, refs, label, &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: no usable evidence cited; dropped", label))
			continue
		}
		o := buildOrg(ro, recs, label, &d.Warnings)
		if !o.Identified() {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: no name survived enforcement; dropped", label))
			continue
		}
		d.Organizations = append(d.Organizations, o)
	}

	for i, rc := range reply.PriorityClaims {
		label := fmt.Sprintf("priority_claims[%d]", i)
		recs := resolveRefs(rc.Evidence, claimCategories, refs, label, &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: no usable evidence cited; dropped", label))
			continue
		}
		c := buildClaim(rc, recs, label, &d.Warnings)
		if record.IsUnknown(c.PriorAppID) && record.IsUnknown(c.FilingDate) {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: nothing survived enforcement; dropped", label))
			continue
		}
		d.PriorityClaims = append(d.PriorityClaims, c)
	}

	if reply.Correspondence != nil {
		recs := resolveRefs(reply.Correspondence.Evidence, correspondenceCategories, refs, "correspondence", &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, "correspondence: no usable evidence cited; dropped")
		} else if co := buildCorrespondence(*reply.Correspondence, recs, &d.Warnings); co != nil {
			d.Correspondence = co
		} else {
			d.Warnings = append(d.Warnings, "correspondence: nothing survived enforcement; dropped")
		}
	}

	if reply.Application != nil {
		recs := resolveRefs(reply.Application.Evidence, applicationCategories, refs, "application", &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, "application: no usable evidence cited; dropped")
		} else if app := buildApplication(*reply.Application, recs, &d.Warnings); app != nil {
			d.Application = app
		} else {
			d.Warnings = append(d.Warnings, "application: nothing survived enforcement; dropped")
		}
	}

	if reply.Classification != nil {
		recs := resolveRefs(reply.Classification.Evidence, classificationCategories, refs, "classification", &d.Warnings)
		if len(recs) == 0 {
			d.Warnings = append(d.Warnings, "classification: no usable evidence cited; dropped")
		} else if cl := buildClassification(*reply.Classification, recs, &d.Warnings); cl != nil {
			d.Classification = cl
		} else {
			d.Warnings = append(d.Warnings, "classification: nothing survived enforcement; dropped")
		}
	}

	return d
}

// resolveRefs maps cited evidence numbers onto records, dropping numbers
// that do not exist and records whose category cannot support the
// citing record.
func resolveRefs(cited []string, allowed map[record.FieldCategory]bool, refs map[string]record.EvidenceRecord, label string, warnings *[]string) []record.EvidenceRecord {
	out := make([]record.EvidenceRecord, 0, len(cited))
	seen := make(map[string]bool, len(cited))
	for _, ref := range cited {
		ref = strings.TrimSpace(ref)
		rec, ok := refs[ref]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s: cited evidence %s does not exist", label, ref))
			continue
		}
		if !allowed[rec.Category] {
			*warnings = append(*warnings, fmt.Sprintf("%s: cited evidence %s is %s, which cannot support it", label, ref, rec.Category))
			continue
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out
}

// fieldSetter applies the evidence-or-null contract to one reply field:
// null stays unknown, a value the cited quotes do not support is cleared
// with a warning, and a supported value lands with its provenance.
type fieldSetter struct {
	label    string
	text     string
	recs     []record.EvidenceRecord
	prov     map[string]record.FieldOrigin
	warnings *[]string
}

func (fs fieldSetter) set(field string, value *string, dst *string) {
	v := strings.TrimSpace(str(value))
	if record.IsUnknown(v) {
		*dst = record.Unknown
		return
	}
	if !traceable(v, fs.text) {
		*fs.warnings = append(*fs.warnings, fmt.Sprintf("%s.%s: %q is not in the cited evidence; cleared", fs.label, field, v))
		*dst = record.Unknown
		return
	}
	*dst = v
	if fs.prov != nil {
		fs.prov[field] = fieldOrigin(v, fs.recs)
	}
}

func buildPerson(rp replyPerson, recs []record.EvidenceRecord, label string, warnings *[]string) record.PersonCandidate {
	p := record.NewPersonCandidate(personRole(rp.Role, recs))
	p.Evidence = recordIDs(recs)
	p.ConfidenceScore = meanScore(recs)

	fs := fieldSetter{label: label, text: combinedText(recs), recs: recs, prov: p.Provenance, warnings: warnings}
	fs.set("given_name", rp.GivenName, &p.GivenName)
	fs.set("middle_name", rp.MiddleName, &p.MiddleName)
	fs.set("family_name", rp.FamilyName, &p.FamilyName)
	fs.set("suffix", rp.Suffix, &p.Suffix)
	fs.set("residence", rp.Residence, &p.Residence)
	fs.set("email", rp.Email, &p.Email)
	fs.set("phone", rp.Phone, &p.Phone)
	p.Address = buildAddress(rp.Address, fs)

	p.Completeness = record.GradeCompleteness(p.Named(),
		record.Known(p.Residence) || !p.Address.Empty(),
		record.Known(p.Email) || record.Known(p.Phone))
	return p
}

func buildOrg(ro replyOrg, recs []record.EvidenceRecord, label string, warnings *[]string) record.OrgCandidate {
	o := record.NewOrgCandidate(orgRole(ro.Role, recs))
	o.Evidence = recordIDs(recs)
	o.ConfidenceScore = meanScore(recs)

	fs := fieldSetter{label: label, text: combinedText(recs), recs: recs, prov: o.Provenance, warnings: warnings}
	fs.set("name", ro.Name, &o.Name)
	fs.set("representative", ro.Representative, &o.Representative)
	fs.set("email", ro.Email, &o.Email)
	fs.set("phone", ro.Phone, &o.Phone)
	o.Address = buildAddress(ro.Address, fs)

	o.Completeness = record.GradeCompleteness(o.Identified(),
		!o.Address.Empty(),
		record.Known(o.Email) || record.Known(o.Phone))
	return o
}

func buildClaim(rc replyClaim, recs []record.EvidenceRecord, label string, warnings *[]string) record.PriorityClaim {
	c := record.PriorityClaim{
		ID:       uuid.New().String(),
		Evidence: recordIDs(recs),
	}

	fs := fieldSetter{label: label, text: combinedText(recs), recs: recs, warnings: warnings}
	fs.set("prior_application_number", rc.PriorAppID, &c.PriorAppID)
	fs.set("filing_date", rc.FilingDate, &c.FilingDate)
	fs.set("country", rc.Country, &c.Country)

	// Canonical forms after tracing: tracing checks what the model copied,
	// normalization is ours.
	if record.Known(c.FilingDate) {
		if norm, err := record.NormalizeDate(c.FilingDate); err == nil {
			c.FilingDate = norm
		}
	}
	if record.Known(c.Country) {
		if code, ok := record.NormalizeCountry(c.Country); ok {
			c.Country = code
		}
	}

	// Relation and kind are classifications, not copied values; they are
	// parsed rather than traced.
	if rel, ok := record.ParseRelation(str(rc.Relation)); ok {
		c.Relation = rel
	}
	if k, ok := record.ParseClaimKind(str(rc.Kind)); ok {
		c.Kind = k
	} else if record.Known(c.Country) && c.Country != "US" {
		c.Kind = record.ClaimForeign
	} else {
		c.Kind = record.ClaimDomestic
	}
	return c
}

func buildAddress(ra *replyAddress, fs fieldSetter) record.Address {
	if ra == nil {
		return record.Address{}
	}
	var a record.Address
	fs.set("address.street1", ra.Street1, &a.Street1)
	fs.set("address.street2", ra.Street2, &a.Street2)
	fs.set("address.city", ra.City, &a.City)
	fs.set("address.region", ra.Region, &a.Region)
	fs.set("address.postal_code", ra.PostalCode, &a.PostalCode)
	fs.set("address.country", ra.Country, &a.Country)

	if record.Known(a.Region) {
		if code, ok := record.NormalizeRegion(a.Region); ok {
			a.Region = code
		}
	}
	if record.Known(a.Country) {
		if code, ok := record.NormalizeCountry(a.Country); ok {
			a.Country = code
		}
	}
	return a
}

func buildCorrespondence(rc replyCorrespondence, recs []record.EvidenceRecord, warnings *[]string) *record.Correspondence {
	co := &record.Correspondence{Evidence: recordIDs(recs)}

	fs := fieldSetter{label: "correspondence", text: combinedText(recs), recs: recs, warnings: warnings}
	fs.set("name", rc.Name, &co.Name)
	fs.set("email", rc.Email, &co.Email)
	fs.set("phone", rc.Phone, &co.Phone)
	fs.set("customer_number", rc.CustomerNumber, &co.CustomerNumber)
	co.Address = buildAddress(rc.Address, fs)

	if record.IsUnknown(co.Name) && co.Address.Empty() &&
		record.IsUnknown(co.Email) && record.IsUnknown(co.Phone) &&
		record.IsUnknown(co.CustomerNumber) {
		return nil
	}
	return co
}

func buildApplication(ra replyApplication, recs []record.EvidenceRecord, warnings *[]string) *record.ApplicationInfo {
	app := &record.ApplicationInfo{Evidence: recordIDs(recs)}

	fs := fieldSetter{label: "application", text: combinedText(recs), recs: recs, warnings: warnings}
	fs.set("title", ra.Title, &app.Title)
	fs.set("docket_number", ra.DocketNumber, &app.DocketNumber)
	fs.set("application_number", ra.ApplicationNumber, &app.ApplicationNumber)
	fs.set("filing_date", ra.FilingDate, &app.FilingDate)
	fs.set("entity_status", ra.EntityStatus, &app.EntityStatus)

	if record.Known(app.FilingDate) {
		if norm, err := record.NormalizeDate(app.FilingDate); err == nil {
			app.FilingDate = norm
		}
	}
	if record.Known(app.EntityStatus) {
		app.EntityStatus = normalizeEntityStatus(app.EntityStatus)
	}

	if record.IsUnknown(app.Title) && record.IsUnknown(app.DocketNumber) &&
		record.IsUnknown(app.ApplicationNumber) && record.IsUnknown(app.FilingDate) &&
		record.IsUnknown(app.EntityStatus) {
		return nil
	}
	return app
}

func buildClassification(rc replyClassification, recs []record.EvidenceRecord, warnings *[]string) *record.Classification {
	cl := &record.Classification{Evidence: recordIDs(recs)}

	fs := fieldSetter{label: "classification", text: combinedText(recs), recs: recs, warnings: warnings}
	fs.set("subject", rc.Subject, &cl.Subject)
	fs.set("suggested_class", rc.SuggestedClass, &cl.SuggestedClass)

	if record.IsUnknown(cl.Subject) && record.IsUnknown(cl.SuggestedClass) {
		return nil
	}
	return cl
}

// normalizeEntityStatus maps stated fee status wording onto the three
// USPTO entity sizes. Unrecognized wording passes through for the
// validator to flag.
func normalizeEntityStatus(s string) string {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "micro"):
		return "micro"
	case strings.Contains(v, "small"):
		return "small"
	case strings.Contains(v, "undiscounted"), strings.Contains(v, "large"),
		strings.Contains(v, "regular"), strings.Contains(v, "standard"):
		return "undiscounted"
	default:
		return s
	}
}

// personRole parses the model's role, falling back to what the cited
// evidence categories imply.
func personRole(role *string, recs []record.EvidenceRecord) record.Role {
	if r, ok := record.ParseRole(str(role)); ok {
		return r
	}
	return roleFromEvidence(recs, record.RoleInventor)
}

// orgRole is personRole for organizations; an organization is never an
// inventor.
func orgRole(role *string, recs []record.EvidenceRecord) record.Role {
	if r, ok := record.ParseRole(str(role)); ok && r != record.RoleInventor {
		return r
	}
	return roleFromEvidence(recs, record.RoleApplicant)
}

// roleFromEvidence derives a role from the dominant evidence category.
// Ties break toward the earliest cited record.
func roleFromEvidence(recs []record.EvidenceRecord, fallback record.Role) record.Role {
	counts := make(map[record.FieldCategory]int, len(recs))
	var top record.FieldCategory
	for _, r := range recs {
		counts[r.Category]++
		if counts[r.Category] > counts[top] {
			top = r.Category
		}
	}
	switch top {
	case record.CategoryInventor:
		return record.RoleInventor
	case record.CategoryCorrespondence:
		return record.RoleAttorney
	case record.CategoryApplicant:
		return record.RoleApplicant
	default:
		return fallback
	}
}

// fieldOrigin picks the provenance for a field value: the cited records
// whose text carries the value, with the section and confidence of the
// strongest among them. A value only supported by the quotes in
// combination cites them all.
func fieldOrigin(value string, recs []record.EvidenceRecord) record.FieldOrigin {
	ids := make([]string, 0, len(recs))
	best := -1
	for i, r := range recs {
		if !traceable(value, r.RawText) {
			continue
		}
		ids = append(ids, r.ID)
		if best == -1 || r.Confidence.Score() > recs[best].Confidence.Score() {
			best = i
		}
	}
	if best == -1 {
		ids = recordIDs(recs)
		best = 0
		for i := 1; i < len(recs); i++ {
			if recs[i].Confidence.Score() > recs[best].Confidence.Score() {
				best = i
			}
		}
	}
	return record.FieldOrigin{
		Section:     recs[best].SourceSection,
		Confidence:  recs[best].Confidence,
		EvidenceIDs: ids,
	}
}

func combinedText(recs []record.EvidenceRecord) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = r.RawText
	}
	return strings.Join(parts, "\n")
}

func recordIDs(recs []record.EvidenceRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func meanScore(recs []record.EvidenceRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += r.Confidence.Score()
	}
	return sum / float64(len(recs))
}
