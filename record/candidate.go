package record

import (
	"strings"

	"github.com/google/uuid"
)

// Address is a structured postal address. Unpopulated components hold the
// Unknown marker or are empty.
type Address struct {
	// Street1 is the primary street line.
	Street1 string `json:"street1,omitempty"`

	// Street2 is the secondary street line (suite, apartment, floor).
	Street2 string `json:"street2,omitempty"`

	// City is the city or locality.
	City string `json:"city,omitempty"`

	// Region is the state, province, or region code.
	Region string `json:"region,omitempty"`

	// PostalCode is the postal or ZIP code.
	PostalCode string `json:"postal_code,omitempty"`

	// Country is the ISO 3166-1 alpha-2 country code.
	Country string `json:"country,omitempty"`
}

// Empty reports whether no component of the address is populated.
func (a Address) Empty() bool {
	return IsUnknown(a.Street1) && IsUnknown(a.Street2) && IsUnknown(a.City) &&
		IsUnknown(a.Region) && IsUnknown(a.PostalCode) && IsUnknown(a.Country)
}

// Line renders the populated components as a single comparison line.
func (a Address) Line() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Street1, a.Street2, a.City, a.Region, a.PostalCode, a.Country} {
		if Known(p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FieldOrigin records where a candidate field's value came from. The
// consolidator uses it to rank competing values; the correction loop uses
// it to re-assemble the supporting quotes for a re-prompt.
type FieldOrigin struct {
	// Section is the source section the winning evidence came from.
	Section string `json:"section,omitempty"`

	// Confidence is the evidence confidence backing the value.
	Confidence Level `json:"confidence"`

	// EvidenceIDs are the supporting evidence record IDs.
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// PersonCandidate is a possible person entity assembled from evidence.
// Candidates are raw until the consolidator merges them; the merged
// entities keep the union of their sources' evidence references.
type PersonCandidate struct {
	// ID is the unique identifier for this candidate.
	ID string `json:"id"`

	// GivenName is the first name.
	GivenName string `json:"given_name"`

	// MiddleName is the middle name or initial.
	MiddleName string `json:"middle_name,omitempty"`

	// FamilyName is the last name.
	FamilyName string `json:"family_name"`

	// Suffix is a generational or honorific suffix (Jr., III).
	Suffix string `json:"suffix,omitempty"`

	// Residence is the stated residence (city and country) when it
	// differs from the mailing address.
	Residence string `json:"residence,omitempty"`

	// Address is the mailing address.
	Address Address `json:"address"`

	// Email is the contact email.
	Email string `json:"email,omitempty"`

	// Phone is the contact phone number.
	Phone string `json:"phone,omitempty"`

	// Role is the part this person plays in the filing.
	Role Role `json:"role"`

	// Completeness grades how fully populated the candidate is.
	Completeness Completeness `json:"completeness"`

	// ConfidenceScore aggregates the supporting evidence confidence.
	ConfidenceScore float64 `json:"confidence_score"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence"`

	// Provenance maps field names (given_name, address, email, ...) to
	// where their values came from.
	Provenance map[string]FieldOrigin `json:"provenance,omitempty"`
}

// NewPersonCandidate creates a person candidate with a fresh ID.
func NewPersonCandidate(role Role) PersonCandidate {
	return PersonCandidate{
		ID:         uuid.New().String(),
		Role:       role,
		Provenance: make(map[string]FieldOrigin),
	}
}

// FullName joins the known name parts for display and comparison.
func (p PersonCandidate) FullName() string {
	parts := make([]string, 0, 4)
	for _, n := range []string{p.GivenName, p.MiddleName, p.FamilyName, p.Suffix} {
		if Known(n) {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}

// Named reports whether the candidate carries at least one name part.
func (p PersonCandidate) Named() bool {
	return Known(p.GivenName) || Known(p.FamilyName)
}

// OrgCandidate is a possible organization entity assembled from evidence.
type OrgCandidate struct {
	// ID is the unique identifier for this candidate.
	ID string `json:"id"`

	// Name is the organization name.
	Name string `json:"name"`

	// Representative is the named contact person, when the document
	// identifies one.
	Representative string `json:"representative,omitempty"`

	// Address is the mailing address.
	Address Address `json:"address"`

	// Email is the contact email.
	Email string `json:"email,omitempty"`

	// Phone is the contact phone number.
	Phone string `json:"phone,omitempty"`

	// Role is the part this organization plays in the filing.
	Role Role `json:"role"`

	// Completeness grades how fully populated the candidate is.
	Completeness Completeness `json:"completeness"`

	// ConfidenceScore aggregates the supporting evidence confidence.
	ConfidenceScore float64 `json:"confidence_score"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence"`

	// Provenance maps field names to where their values came from.
	Provenance map[string]FieldOrigin `json:"provenance,omitempty"`
}

// NewOrgCandidate creates an organization candidate with a fresh ID.
func NewOrgCandidate(role Role) OrgCandidate {
	return OrgCandidate{
		ID:         uuid.New().String(),
		Role:       role,
		Provenance: make(map[string]FieldOrigin),
	}
}

// Identified reports whether the organization carries a name or a named
// representative. An organization with neither is invalid.
func (o OrgCandidate) Identified() bool {
	return Known(o.Name) || Known(o.Representative)
}
