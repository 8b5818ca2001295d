package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnknown(t *testing.T) {
	assert.True(t, IsUnknown(""))
	assert.True(t, IsUnknown("unknown"))
	assert.True(t, IsUnknown("Unknown"))
	assert.True(t, IsUnknown("  UNKNOWN  "))
	assert.False(t, IsUnknown("Jane Smith"))

	// A real value containing the word is not the marker.
	assert.False(t, IsUnknown("Unknown Ventures LLC"))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("Acme Corp"))
	assert.False(t, Known("unknown"))
	assert.False(t, Known(""))
}

func TestNewEvidenceRecord(t *testing.T) {
	r := NewEvidenceRecord(CategoryInventor, "Inventor: Jane Smith")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, CategoryInventor, r.Category)
	assert.Equal(t, "Inventor: Jane Smith", r.RawText)

	r2 := NewEvidenceRecord(CategoryInventor, "Inventor: Jane Smith")
	assert.NotEqual(t, r.ID, r2.ID, "each record gets its own ID")
}

func TestEvidenceSet_Lookups(t *testing.T) {
	records := []EvidenceRecord{
		{ID: "e1", Category: CategoryInventor, RawText: "Inventor: Jane Smith"},
		{ID: "e2", Category: CategoryApplicant, RawText: "Applicant: Acme Corp"},
		{ID: "e3", Category: CategoryInventor, RawText: "Jane Smith, Portland OR"},
	}
	set := NewEvidenceSet(records)

	require.Equal(t, 3, set.Len())

	r, ok := set.ByID("e2")
	require.True(t, ok)
	assert.Equal(t, CategoryApplicant, r.Category)

	_, ok = set.ByID("missing")
	assert.False(t, ok)

	inventors := set.ByCategory(CategoryInventor)
	require.Len(t, inventors, 2)
	assert.Equal(t, "e1", inventors[0].ID)
	assert.Equal(t, "e3", inventors[1].ID)

	assert.Empty(t, set.ByCategory(CategoryPriorityClaim))
	assert.Len(t, set.All(), 3)
}
