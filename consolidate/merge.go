package consolidate

import (
	"sort"
	"strings"

	"github.com/coverlight/intake/record"
)

// unionFind clusters candidate indices by transitive similarity.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// clusters groups indices by root, preserving first-seen order.
func (u *unionFind) clusters() [][]int {
	byRoot := make(map[int][]int)
	var order []int
	for i := range u.parent {
		r := u.find(i)
		if _, ok := byRoot[r]; !ok {
			order = append(order, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	out := make([][]int, 0, len(order))
	for _, r := range order {
		out = append(out, byRoot[r])
	}
	return out
}

// Role precedence when merged mentions disagree. Inventorship dominates
// for persons; an organization is an applicant before it is anyone's
// counsel.
func roleRank(r record.Role) int {
	switch r {
	case record.RoleInventor:
		return 3
	case record.RoleApplicant:
		return 2
	case record.RoleAttorney:
		return 1
	default:
		return 0
	}
}

// sectionPriority ranks the section a field value came from: a section
// matching the entity's role beats any named section, which beats none.
func sectionPriority(role record.Role, section string) int {
	if section == "" {
		return 0
	}
	s := strings.ToLower(section)
	var keywords []string
	switch role {
	case record.RoleInventor:
		keywords = []string{"inventor"}
	case record.RoleApplicant:
		keywords = []string{"applicant", "assignee"}
	case record.RoleAttorney:
		keywords = []string{"correspondence", "attorney", "agent"}
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return 2
		}
	}
	return 1
}

// fieldChoice ranks one candidate's value for a field during a merge.
type fieldChoice struct {
	value  string
	origin record.FieldOrigin
	rank   [3]float64 // completeness, section priority, confidence
}

func better(a, b fieldChoice) bool {
	for i := range a.rank {
		if a.rank[i] != b.rank[i] {
			return a.rank[i] > b.rank[i]
		}
	}
	// Fuller spellings win ties; then lexicographic for determinism.
	if len(a.value) != len(b.value) {
		return len(a.value) > len(b.value)
	}
	return a.value < b.value
}

// fieldPicker folds one field across cluster members: completeness of
// the owning mention first, then how authoritative the source section
// is, then evidence confidence. Ties go to the fuller spelling.
type fieldPicker struct {
	role record.Role
	best map[string]fieldChoice
}

func newFieldPicker(role record.Role) *fieldPicker {
	return &fieldPicker{role: role, best: make(map[string]fieldChoice)}
}

func (f *fieldPicker) offer(field, value string, completeness record.Completeness, prov map[string]record.FieldOrigin) {
	if record.IsUnknown(value) {
		return
	}
	origin := prov[field]
	c := fieldChoice{
		value:  value,
		origin: origin,
		rank: [3]float64{
			float64(completeness.Rank()),
			float64(sectionPriority(f.role, origin.Section)),
			origin.Confidence.Score(),
		},
	}
	cur, ok := f.best[field]
	if !ok || better(c, cur) {
		f.best[field] = c
	}
}

func (f *fieldPicker) take(field string, dst *string, prov map[string]record.FieldOrigin) {
	c, ok := f.best[field]
	if !ok {
		*dst = record.Unknown
		return
	}
	*dst = c.value
	prov[field] = c.origin
}

// mergePersons folds a cluster of person candidates into one. The best
// member (fullest, then most confident) anchors the identity and keeps
// its ID; fields fold in from every member.
func mergePersons(members []record.PersonCandidate) record.PersonCandidate {
	sort.Slice(members, func(i, j int) bool { return personQuality(members[i], members[j]) })

	merged := members[0]
	merged.Provenance = make(map[string]record.FieldOrigin)

	role := members[0].Role
	for _, m := range members[1:] {
		if roleRank(m.Role) > roleRank(role) {
			role = m.Role
		}
	}
	merged.Role = role

	picker := newFieldPicker(role)
	for _, m := range members {
		picker.offer("given_name", m.GivenName, m.Completeness, m.Provenance)
		picker.offer("middle_name", m.MiddleName, m.Completeness, m.Provenance)
		picker.offer("family_name", m.FamilyName, m.Completeness, m.Provenance)
		picker.offer("suffix", m.Suffix, m.Completeness, m.Provenance)
		picker.offer("residence", m.Residence, m.Completeness, m.Provenance)
		picker.offer("email", m.Email, m.Completeness, m.Provenance)
		picker.offer("phone", m.Phone, m.Completeness, m.Provenance)
	}
	picker.take("given_name", &merged.GivenName, merged.Provenance)
	picker.take("middle_name", &merged.MiddleName, merged.Provenance)
	picker.take("family_name", &merged.FamilyName, merged.Provenance)
	picker.take("suffix", &merged.Suffix, merged.Provenance)
	picker.take("residence", &merged.Residence, merged.Provenance)
	picker.take("email", &merged.Email, merged.Provenance)
	picker.take("phone", &merged.Phone, merged.Provenance)

	merged.Address = pickAddress(role, personAddresses(members), merged.Provenance)
	merged.Evidence = unionEvidence(personEvidence(members))
	merged.ConfidenceScore = maxPersonConfidence(members)
	merged.Completeness = record.GradeCompleteness(merged.Named(),
		record.Known(merged.Residence) || !merged.Address.Empty(),
		record.Known(merged.Email) || record.Known(merged.Phone))
	return merged
}

// mergeOrgs is mergePersons for organization candidates.
func mergeOrgs(members []record.OrgCandidate) record.OrgCandidate {
	sort.Slice(members, func(i, j int) bool { return orgQuality(members[i], members[j]) })

	merged := members[0]
	merged.Provenance = make(map[string]record.FieldOrigin)

	role := members[0].Role
	for _, m := range members[1:] {
		if roleRank(m.Role) > roleRank(role) {
			role = m.Role
		}
	}
	merged.Role = role

	picker := newFieldPicker(role)
	for _, m := range members {
		picker.offer("name", m.Name, m.Completeness, m.Provenance)
		picker.offer("representative", m.Representative, m.Completeness, m.Provenance)
		picker.offer("email", m.Email, m.Completeness, m.Provenance)
		picker.offer("phone", m.Phone, m.Completeness, m.Provenance)
	}
	picker.take("name", &merged.Name, merged.Provenance)
	picker.take("representative", &merged.Representative, merged.Provenance)
	picker.take("email", &merged.Email, merged.Provenance)
	picker.take("phone", &merged.Phone, merged.Provenance)

	merged.Address = pickAddress(role, orgAddresses(members), merged.Provenance)
	merged.Evidence = unionEvidence(orgEvidence(members))
	merged.ConfidenceScore = maxOrgConfidence(members)
	merged.Completeness = record.GradeCompleteness(merged.Identified(),
		!merged.Address.Empty(),
		record.Known(merged.Email) || record.Known(merged.Phone))
	return merged
}

// addressSource is one member's address with the rank inputs the picker
// needs.
type addressSource struct {
	addr         record.Address
	completeness record.Completeness
	confidence   float64
	prov         map[string]record.FieldOrigin
}

// pickAddress selects the best whole address across members. Addresses
// merge as a unit; folding components from different mentions could
// stitch together a place that exists nowhere.
func pickAddress(role record.Role, sources []addressSource, prov map[string]record.FieldOrigin) record.Address {
	bestIdx := -1
	var bestRank [3]float64
	var bestLine string
	for i, s := range sources {
		if s.addr.Empty() {
			continue
		}
		origin := s.prov["address.street1"]
		rank := [3]float64{
			float64(s.completeness.Rank()),
			float64(sectionPriority(role, origin.Section)),
			s.confidence,
		}
		line := s.addr.Line()
		replace := bestIdx == -1
		if !replace {
			for k := range rank {
				if rank[k] != bestRank[k] {
					replace = rank[k] > bestRank[k]
					break
				}
			}
			if !replace && rank == bestRank {
				replace = len(line) > len(bestLine) || (len(line) == len(bestLine) && line < bestLine)
			}
		}
		if replace {
			bestIdx, bestRank, bestLine = i, rank, line
		}
	}
	if bestIdx == -1 {
		return record.Address{}
	}
	for field, origin := range sources[bestIdx].prov {
		if strings.HasPrefix(field, "address.") {
			prov[field] = origin
		}
	}
	return sources[bestIdx].addr
}

// personQuality orders members best-first: fullest, then most
// confident, then stable content tiebreaks.
func personQuality(a, b record.PersonCandidate) bool {
	if a.Completeness.Rank() != b.Completeness.Rank() {
		return a.Completeness.Rank() > b.Completeness.Rank()
	}
	if a.ConfidenceScore != b.ConfidenceScore {
		return a.ConfidenceScore > b.ConfidenceScore
	}
	an, bn := a.FullName(), b.FullName()
	if len(an) != len(bn) {
		return len(an) > len(bn)
	}
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func orgQuality(a, b record.OrgCandidate) bool {
	if a.Completeness.Rank() != b.Completeness.Rank() {
		return a.Completeness.Rank() > b.Completeness.Rank()
	}
	if a.ConfidenceScore != b.ConfidenceScore {
		return a.ConfidenceScore > b.ConfidenceScore
	}
	if len(a.Name) != len(b.Name) {
		return len(a.Name) > len(b.Name)
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

func personAddresses(members []record.PersonCandidate) []addressSource {
	out := make([]addressSource, len(members))
	for i, m := range members {
		out[i] = addressSource{addr: m.Address, completeness: m.Completeness, confidence: m.ConfidenceScore, prov: m.Provenance}
	}
	return out
}

func orgAddresses(members []record.OrgCandidate) []addressSource {
	out := make([]addressSource, len(members))
	for i, m := range members {
		out[i] = addressSource{addr: m.Address, completeness: m.Completeness, confidence: m.ConfidenceScore, prov: m.Provenance}
	}
	return out
}

func personEvidence(members []record.PersonCandidate) [][]string {
	out := make([][]string, len(members))
	for i, m := range members {
		out[i] = m.Evidence
	}
	return out
}

func orgEvidence(members []record.OrgCandidate) [][]string {
	out := make([][]string, len(members))
	for i, m := range members {
		out[i] = m.Evidence
	}
	return out
}

// unionEvidence joins the members' evidence references, deduplicated,
// sorted for stable output.
func unionEvidence(lists [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func maxPersonConfidence(members []record.PersonCandidate) float64 {
	var best float64
	for _, m := range members {
		if m.ConfidenceScore > best {
			best = m.ConfidenceScore
		}
	}
	return best
}

func maxOrgConfidence(members []record.OrgCandidate) float64 {
	var best float64
	for _, m := range members {
		if m.ConfidenceScore > best {
			best = m.ConfidenceScore
		}
	}
	return best
}
