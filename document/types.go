// Package document models intake submissions: the documents that make up
// a submission, their source formats, and the segments the chunker
// produces for the evidence gatherer.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Format tags how a document's content reached us. The evidence gatherer
// picks its prompt strategy from this tag.
type Format string

const (
	// FormatText is digitally produced text (typed cover sheets,
	// transmittal letters, converted HTML).
	FormatText Format = "text"

	// FormatForm is structured form output (XML or JSON field dumps from
	// fillable forms).
	FormatForm Format = "form"

	// FormatImage is text recovered from a scanned or photographed page.
	// Layout is unreliable and OCR artifacts are expected.
	FormatImage Format = "image"
)

// DetectFormat infers the document format from its filename.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml", ".json":
		return FormatForm
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif":
		return FormatImage
	default:
		return FormatText
	}
}

// Document is one file of a submission with its extracted text content.
type Document struct {
	// ID identifies the document within the submission.
	ID string `json:"id"`

	// Filename is the original filename.
	Filename string `json:"filename"`

	// Format tags how the content reached us.
	Format Format `json:"format"`

	// Content is the text content. For image documents this is the
	// OCR output produced upstream.
	Content string `json:"content"`

	// Pages is the page count, when known. Zero means unknown.
	Pages int `json:"pages,omitempty"`
}

// New creates a document with a fresh ID and a detected format.
func New(filename, content string) Document {
	return Document{
		ID:       uuid.New().String(),
		Filename: filename,
		Format:   DetectFormat(filename),
		Content:  content,
	}
}

// Set is one submission: the documents extraction runs over.
type Set struct {
	// ID identifies the submission.
	ID string `json:"id"`

	// Documents are the submission's files.
	Documents []Document `json:"documents"`
}

// NewSet creates a set with a fresh ID.
func NewSet(docs ...Document) Set {
	return Set{ID: uuid.New().String(), Documents: docs}
}

// Validate checks the set is extractable: at least one document, every
// document carrying an ID and content.
func (s Set) Validate() error {
	if len(s.Documents) == 0 {
		return fmt.Errorf("document set is empty")
	}
	for i, d := range s.Documents {
		if d.ID == "" {
			return fmt.Errorf("document %d (%s) has no ID", i, d.Filename)
		}
		if strings.TrimSpace(d.Content) == "" {
			return fmt.Errorf("document %d (%s) has no content", i, d.Filename)
		}
	}
	return nil
}

// Segment is one chunk of a document, sized for a single model call.
type Segment struct {
	// FileID identifies the source document.
	FileID string `json:"file_id"`

	// Index is the segment's position across the whole submission.
	Index int `json:"index"`

	// Content is the segment text, including any re-emitted table header
	// and overlap carried from the previous segment.
	Content string `json:"content"`

	// Section is the nearest heading above the segment, when one exists.
	Section string `json:"section,omitempty"`

	// PageStart is the first source page covered by the segment.
	PageStart int `json:"page_start"`

	// PageEnd is the last source page covered by the segment.
	PageEnd int `json:"page_end"`

	// TokenCount is the estimated token count.
	TokenCount int `json:"token_count"`
}
