package record

// FieldCategory classifies which filing field an evidence record supports.
// The set is closed: model replies tagged with anything else are dropped
// rather than carried as free-form categories.
type FieldCategory string

const (
	// CategoryInventor marks evidence about an inventor (name, residence, citizenship).
	CategoryInventor FieldCategory = "inventor"

	// CategoryApplicant marks evidence about an applicant or assignee.
	// Applicants may be persons or organizations.
	CategoryApplicant FieldCategory = "applicant"

	// CategoryCorrespondence marks evidence about the correspondence address
	// or the attorney/agent contact.
	CategoryCorrespondence FieldCategory = "correspondence"

	// CategoryPriorityClaim marks evidence about a domestic benefit or
	// foreign priority claim (prior application number, filing date, relation).
	CategoryPriorityClaim FieldCategory = "priority_claim"

	// CategoryApplicationInfo marks evidence about the application itself:
	// title, docket number, application number, filing date, entity status.
	CategoryApplicationInfo FieldCategory = "application_info"

	// CategoryClassification marks evidence about technical classification
	// (subject matter, suggested class).
	CategoryClassification FieldCategory = "classification"

	// CategoryUnknown is assigned when a reply tags a category outside the
	// closed set. Records in this category are logged and discarded.
	CategoryUnknown FieldCategory = "unknown"
)

// ParseCategory maps a model-supplied category string onto the closed set.
// Unrecognized values map to CategoryUnknown.
func ParseCategory(s string) FieldCategory {
	switch FieldCategory(s) {
	case CategoryInventor, CategoryApplicant, CategoryCorrespondence,
		CategoryPriorityClaim, CategoryApplicationInfo, CategoryClassification:
		return FieldCategory(s)
	default:
		return CategoryUnknown
	}
}

// Valid reports whether the category belongs to the closed set.
func (c FieldCategory) Valid() bool {
	return c != CategoryUnknown && ParseCategory(string(c)) == c
}

// Level grades how directly a piece of evidence supports its category.
type Level string

const (
	// LevelHigh indicates evidence from an explicit labeled field
	// ("Inventor: Jane Smith").
	LevelHigh Level = "high"

	// LevelMedium indicates evidence from clear context without an
	// explicit label (a name under an "Inventors" heading).
	LevelMedium Level = "medium"

	// LevelLow indicates inferred or ambiguous evidence (a name in a
	// footer, an address with no association).
	LevelLow Level = "low"
)

// ParseLevel maps a model-supplied confidence string onto a Level.
// Unrecognized values degrade to LevelLow.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelHigh, LevelMedium:
		return Level(s)
	default:
		return LevelLow
	}
}

// Score maps the level to a numeric weight for aggregation.
func (l Level) Score() float64 {
	switch l {
	case LevelHigh:
		return 1.0
	case LevelMedium:
		return 0.7
	default:
		return 0.4
	}
}

// Completeness grades how fully populated a candidate is.
type Completeness string

const (
	// CompletenessFull indicates all fields expected for the candidate's
	// role are populated.
	CompletenessFull Completeness = "full"

	// CompletenessPartial indicates identifying fields are present but
	// secondary fields (address, contact) are missing.
	CompletenessPartial Completeness = "partial"

	// CompletenessMinimal indicates only a name or identifier was found.
	CompletenessMinimal Completeness = "minimal"
)

// GradeCompleteness grades an entity by which field groups it carries:
// identity, address, contact.
func GradeCompleteness(named, addressed, contactable bool) Completeness {
	switch {
	case named && addressed && contactable:
		return CompletenessFull
	case named && (addressed || contactable):
		return CompletenessPartial
	default:
		return CompletenessMinimal
	}
}

// Rank orders completeness grades for comparison; higher is fuller.
func (c Completeness) Rank() int {
	switch c {
	case CompletenessFull:
		return 2
	case CompletenessPartial:
		return 1
	default:
		return 0
	}
}

// Role describes the part an entity plays in the filing.
type Role string

const (
	// RoleInventor identifies an inventor.
	RoleInventor Role = "inventor"

	// RoleApplicant identifies an applicant or assignee.
	RoleApplicant Role = "applicant"

	// RoleAttorney identifies an attorney or agent of record.
	RoleAttorney Role = "attorney"
)

// ParseRole maps a model-supplied role string onto the closed set.
// Unrecognized values return ok=false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleInventor, RoleApplicant, RoleAttorney:
		return Role(s), true
	default:
		return "", false
	}
}
