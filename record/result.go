package record

import (
	"time"

	"github.com/google/uuid"
)

// CheckKind classifies which validator produced a result. The scorer
// weighs the classes differently: consistency counts cross-field checks,
// accuracy counts the rest.
type CheckKind string

const (
	// CheckField marks a single-field format or completeness check.
	CheckField CheckKind = "field"

	// CheckCrossField marks a relationship check across fields.
	CheckCrossField CheckKind = "cross_field"

	// CheckSeparation marks a person/organization separation check.
	CheckSeparation CheckKind = "separation"
)

// ValidationResult is the outcome of one validation check. Results are
// append-only: re-validation after a correction appends a new result
// rather than rewriting the old one.
type ValidationResult struct {
	// FieldName is the canonical path of the checked field
	// (application_info.filing_date, persons[0].email).
	FieldName string `json:"field_name"`

	// Check classifies the producing validator.
	Check CheckKind `json:"check"`

	// IsValid reports whether the check passed.
	IsValid bool `json:"is_valid"`

	// Errors lists blocking problems found by the check.
	Errors []string `json:"errors,omitempty"`

	// Warnings lists non-blocking problems found by the check.
	Warnings []string `json:"warnings,omitempty"`

	// NormalizedValue is the canonical form, when normalization applied.
	NormalizedValue string `json:"normalized_value,omitempty"`

	// ConfidenceScore is the check's confidence in its verdict.
	ConfidenceScore float64 `json:"confidence_score"`

	// Corrected marks results produced by re-validation after a
	// successful targeted correction.
	Corrected bool `json:"corrected,omitempty"`
}

// QualityMetrics summarizes extraction quality. Computed once per run by
// the scorer after validation and correction have finished.
type QualityMetrics struct {
	// Completeness is required fields populated over required fields total.
	Completeness float64 `json:"completeness"`

	// Accuracy is fields passing validation over fields validated.
	Accuracy float64 `json:"accuracy"`

	// Confidence is the mean candidate confidence scaled by the segment
	// success ratio.
	Confidence float64 `json:"confidence"`

	// Consistency is cross-field checks passed over cross-field checks run.
	Consistency float64 `json:"consistency"`

	// Overall is the weighted combination of the four components.
	Overall float64 `json:"overall"`

	// RequiredPopulated counts populated required fields.
	RequiredPopulated int `json:"required_populated"`

	// RequiredTotal counts required fields for this filing.
	RequiredTotal int `json:"required_total"`

	// ErrorCount counts validation errors across the run.
	ErrorCount int `json:"error_count"`

	// WarningCount counts validation warnings across the run.
	WarningCount int `json:"warning_count"`
}

// ExtractionResult is the root aggregate for one extraction run. The
// orchestrator owns it: stages receive it, append to it per the lifecycle
// rules, and never remove what earlier stages produced.
type ExtractionResult struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`

	// Persons are the consolidated person entities.
	Persons []PersonCandidate `json:"persons"`

	// Organizations are the consolidated organization entities.
	Organizations []OrgCandidate `json:"organizations"`

	// PriorityClaims are the extracted priority and benefit claims.
	PriorityClaims []PriorityClaim `json:"priority_claims,omitempty"`

	// Correspondence is the correspondence target, when one was found.
	Correspondence Correspondence `json:"correspondence"`

	// ApplicationInfo carries the application-level fields.
	ApplicationInfo ApplicationInfo `json:"application_info"`

	// Classification carries the technical classification, when stated.
	Classification Classification `json:"classification"`

	// Evidence is every evidence record gathered during the run.
	Evidence []EvidenceRecord `json:"evidence"`

	// Validations collects every validation result, append-only.
	Validations []ValidationResult `json:"validations"`

	// Metrics is the quality summary, computed once at the end.
	Metrics QualityMetrics `json:"metrics"`

	// ManualReviewRequired flags runs a human must review before filing.
	ManualReviewRequired bool `json:"manual_review_required"`

	// SegmentsGathered counts segments that produced evidence replies.
	SegmentsGathered int `json:"segments_gathered"`

	// SegmentsFailed counts segments marked gathering_failed.
	SegmentsFailed int `json:"segments_failed"`

	// CorrectionAttempts counts model calls spent on targeted corrections.
	CorrectionAttempts int `json:"correction_attempts"`

	// Warnings collects run-level notes (dropped records, skipped
	// segments) that are not tied to a single field.
	Warnings []string `json:"warnings,omitempty"`
}

// NewExtractionResult creates an empty result with a fresh run ID.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// AddValidation appends validation results to the run.
func (r *ExtractionResult) AddValidation(results ...ValidationResult) {
	r.Validations = append(r.Validations, results...)
}

// AddWarning appends a run-level warning.
func (r *ExtractionResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// EvidenceIndex builds a lookup over the run's evidence records.
func (r *ExtractionResult) EvidenceIndex() *EvidenceSet {
	return NewEvidenceSet(r.Evidence)
}

// SegmentSuccessRatio is gathered over attempted, 1.0 when nothing was
// attempted. Feeds the confidence component of the quality metrics.
func (r *ExtractionResult) SegmentSuccessRatio() float64 {
	total := r.SegmentsGathered + r.SegmentsFailed
	if total == 0 {
		return 1.0
	}
	return float64(r.SegmentsGathered) / float64(total)
}

// Person returns a pointer to the person with the given ID, or nil.
func (r *ExtractionResult) Person(id string) *PersonCandidate {
	for i := range r.Persons {
		if r.Persons[i].ID == id {
			return &r.Persons[i]
		}
	}
	return nil
}

// Organization returns a pointer to the organization with the given ID,
// or nil.
func (r *ExtractionResult) Organization(id string) *OrgCandidate {
	for i := range r.Organizations {
		if r.Organizations[i].ID == id {
			return &r.Organizations[i]
		}
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}
