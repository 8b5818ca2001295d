package record

// ClaimKind discriminates between domestic benefit and foreign priority
// claims.
type ClaimKind string

const (
	// ClaimDomestic is a claim to the benefit of an earlier US filing.
	ClaimDomestic ClaimKind = "domestic"

	// ClaimForeign is a claim to the priority of a foreign filing.
	ClaimForeign ClaimKind = "foreign"
)

// Relation names how a domestic claim relates to the prior application.
type Relation string

const (
	// RelationContinuation is a continuation of the prior application.
	RelationContinuation Relation = "continuation"

	// RelationDivisional is a divisional of the prior application.
	RelationDivisional Relation = "divisional"

	// RelationContinuationInPart is a continuation-in-part.
	RelationContinuationInPart Relation = "continuation_in_part"

	// RelationProvisional claims the benefit of a provisional filing.
	RelationProvisional Relation = "provisional"
)

// ParseClaimKind maps a model-supplied kind string onto the closed set.
// Unrecognized values return ok=false.
func ParseClaimKind(s string) (ClaimKind, bool) {
	switch ClaimKind(s) {
	case ClaimDomestic, ClaimForeign:
		return ClaimKind(s), true
	default:
		return "", false
	}
}

// ParseRelation maps a model-supplied relation string onto the closed set.
// Unrecognized values return ok=false.
func ParseRelation(s string) (Relation, bool) {
	switch Relation(s) {
	case RelationContinuation, RelationDivisional, RelationContinuationInPart, RelationProvisional:
		return Relation(s), true
	default:
		return "", false
	}
}

// PriorityClaim is a claim to an earlier filing date.
type PriorityClaim struct {
	// ID is the unique identifier for this claim.
	ID string `json:"id"`

	// Kind discriminates domestic benefit from foreign priority.
	Kind ClaimKind `json:"kind"`

	// PriorAppID is the prior application identifier.
	PriorAppID string `json:"prior_app_id"`

	// FilingDate is the prior filing date in canonical YYYY-MM-DD form.
	FilingDate string `json:"filing_date"`

	// Relation names the continuity relationship. Domestic claims only.
	Relation Relation `json:"relation,omitempty"`

	// Country is the filing country code. Foreign claims only.
	Country string `json:"country,omitempty"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence"`
}

// Correspondence is the address the filing office should direct mail to.
type Correspondence struct {
	// Name is the addressee (person or firm).
	Name string `json:"name"`

	// Address is the mailing address.
	Address Address `json:"address"`

	// Email is the correspondence email.
	Email string `json:"email,omitempty"`

	// Phone is the correspondence phone number.
	Phone string `json:"phone,omitempty"`

	// CustomerNumber is the practitioner customer number, when stated.
	CustomerNumber string `json:"customer_number,omitempty"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence,omitempty"`
}

// ApplicationInfo carries the application-level fields of the filing.
type ApplicationInfo struct {
	// Title is the title of the invention.
	Title string `json:"title"`

	// DocketNumber is the attorney docket number.
	DocketNumber string `json:"docket_number,omitempty"`

	// ApplicationNumber is the application number, when already assigned.
	ApplicationNumber string `json:"application_number,omitempty"`

	// FilingDate is the filing date in canonical YYYY-MM-DD form.
	FilingDate string `json:"filing_date,omitempty"`

	// EntityStatus is the fee entity status (undiscounted, small, micro).
	EntityStatus string `json:"entity_status,omitempty"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence,omitempty"`
}

// Classification carries the technical classification of the subject
// matter, when the documents state one.
type Classification struct {
	// Subject is the stated subject-matter description.
	Subject string `json:"subject,omitempty"`

	// SuggestedClass is the stated class or art unit suggestion.
	SuggestedClass string `json:"suggested_class,omitempty"`

	// Evidence lists supporting evidence record IDs.
	Evidence []string `json:"evidence,omitempty"`
}
