// Package record defines the data model shared across the extraction
// pipeline: evidence records gathered from document segments, entity
// candidates produced by generation and consolidation, validation
// results, quality metrics, and the aggregate extraction result.
package record

import (
	"strings"

	"github.com/google/uuid"
)

// Unknown is the explicit marker for a field no evidence supports.
// Downstream consumers treat it as absent; it is never rendered into a
// filing form.
const Unknown = "unknown"

// IsUnknown reports whether a field value is the explicit unknown marker
// (or empty, which consumers treat the same way).
func IsUnknown(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Unknown)
}

// Known reports whether a field value carries real extracted content.
func Known(v string) bool {
	return !IsUnknown(v)
}

// EvidenceRecord is one piece of raw evidence tied to its source location.
// Records are immutable once created: downstream stages read them, rank
// them, and reference them by ID, but never alter or delete them.
type EvidenceRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`

	// Category classifies which filing field the evidence supports.
	Category FieldCategory `json:"category"`

	// RawText is the verbatim quote from the document segment.
	RawText string `json:"raw_text"`

	// SourcePage is the 1-based page the quote was found on.
	SourcePage int `json:"source_page"`

	// SourceSection names the document section, when one was identified
	// (header, applicant block, signature line).
	SourceSection string `json:"source_section,omitempty"`

	// Confidence grades how directly the evidence supports the category.
	Confidence Level `json:"confidence"`

	// FileID identifies the source document within the submission.
	FileID string `json:"file_id"`

	// SegmentIndex is the index of the segment the quote came from.
	SegmentIndex int `json:"segment_index"`
}

// NewEvidenceRecord creates a record with a fresh ID.
func NewEvidenceRecord(category FieldCategory, rawText string) EvidenceRecord {
	return EvidenceRecord{
		ID:       uuid.New().String(),
		Category: category,
		RawText:  rawText,
	}
}

// EvidenceSet is a read-only index over a run's evidence records.
type EvidenceSet struct {
	records []EvidenceRecord
	byID    map[string]int
}

// NewEvidenceSet builds an index over the given records.
func NewEvidenceSet(records []EvidenceRecord) *EvidenceSet {
	s := &EvidenceSet{
		records: records,
		byID:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		s.byID[r.ID] = i
	}
	return s
}

// All returns every record in gathering order.
func (s *EvidenceSet) All() []EvidenceRecord {
	return s.records
}

// ByID looks up a record by its identifier.
func (s *EvidenceSet) ByID(id string) (EvidenceRecord, bool) {
	i, ok := s.byID[id]
	if !ok {
		return EvidenceRecord{}, false
	}
	return s.records[i], true
}

// ByCategory returns the records supporting the given category.
func (s *EvidenceSet) ByCategory(c FieldCategory) []EvidenceRecord {
	var out []EvidenceRecord
	for _, r := range s.records {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *EvidenceSet) Len() int {
	return len(s.records)
}
