package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/llm/testutil"
	"github.com/coverlight/intake/record"
)

// cleanCoverSheet is a submission the pipeline should pass without a
// single correction call.
const cleanCoverSheet = `PROVISIONAL APPLICATION COVER SHEET

Title of Invention: Adaptive Beam Router

INVENTOR INFORMATION
Inventor: John A. Smith
Residence: Portland, Oregon
Mailing Address: 100 Main Street, Portland, OR 97201, US
E-mail: jsmith@example.com

APPLICANT INFORMATION
Applicant: Acme Robotics, Inc.

CORRESPONDENCE INFORMATION
Customer Number: 23456
`

// cleanGatherReply quotes the clean cover sheet verbatim, one record per
// field group. Gathering order fixes the E1..E7 numbering generation
// cites.
const cleanGatherReply = `[
  {"category": "application_info", "quote": "Title of Invention: Adaptive Beam Router", "page": 1, "section": "heading", "confidence": "high"},
  {"category": "inventor", "quote": "Inventor: John A. Smith", "page": 1, "section": "inventor information", "confidence": "high"},
  {"category": "inventor", "quote": "Residence: Portland, Oregon", "page": 1, "section": "inventor information", "confidence": "high"},
  {"category": "inventor", "quote": "Mailing Address: 100 Main Street, Portland, OR 97201, US", "page": 1, "section": "inventor information", "confidence": "high"},
  {"category": "inventor", "quote": "E-mail: jsmith@example.com", "page": 1, "section": "inventor information", "confidence": "high"},
  {"category": "applicant", "quote": "Applicant: Acme Robotics, Inc.", "page": 1, "section": "applicant information", "confidence": "high"},
  {"category": "correspondence", "quote": "Customer Number: 23456", "page": 1, "section": "correspondence information", "confidence": "high"}
]`

const cleanGenerateReply = `{
  "persons": [{
    "given_name": "John",
    "middle_name": "A.",
    "family_name": "Smith",
    "residence": "Portland, Oregon",
    "address": {"street1": "100 Main Street", "city": "Portland", "region": "OR", "postal_code": "97201", "country": "US"},
    "email": "jsmith@example.com",
    "role": "inventor",
    "evidence": ["E2", "E3", "E4", "E5"]
  }],
  "organizations": [{
    "name": "Acme Robotics, Inc.",
    "role": "applicant",
    "evidence": ["E6"]
  }],
  "priority_claims": [],
  "correspondence": {"customer_number": "23456", "evidence": ["E7"]},
  "application": {"title": "Adaptive Beam Router", "evidence": ["E1"]},
  "classification": null
}`

func singleDocSet(content string) document.Set {
	return document.Set{
		ID: "sub-1",
		Documents: []document.Document{{
			ID:       "doc-1",
			Filename: "doc-1.txt",
			Format:   document.FormatText,
			Content:  content,
		}},
	}
}

func replies(contents ...string) []*llm.Response {
	out := make([]*llm.Response, len(contents))
	for i, c := range contents {
		out[i] = &llm.Response{Content: c, Model: "test-model"}
	}
	return out
}

func newTestPipeline(t *testing.T, client Completer) (*Pipeline, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	p, err := New(DefaultConfig(), Deps{Client: client, Metrics: m})
	require.NoError(t, err)
	return p, m
}

// latestFieldCheck returns the newest format-check verdict for a path.
func latestFieldCheck(res *record.ExtractionResult, path string) (record.ValidationResult, bool) {
	var out record.ValidationResult
	found := false
	for _, r := range res.Validations {
		if r.FieldName == path && r.Check == record.CheckField {
			out = r
			found = true
		}
	}
	return out, found
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "broken chunker config",
			mutate:  func(c *Config) { c.Chunker.MaxSegmentTokens = -1 },
			wantErr: "chunker:",
		},
		{
			name:    "broken gathering config",
			mutate:  func(c *Config) { c.Gathering.Capability = "" },
			wantErr: "gathering:",
		},
		{
			name:    "broken generation config",
			mutate:  func(c *Config) { c.Generation.MaxTokens = 0 },
			wantErr: "generation:",
		},
		{
			name:    "broken quality weights",
			mutate:  func(c *Config) { c.Quality.WeightAccuracy = 0.9 },
			wantErr: "quality:",
		},
		{
			name:    "broken correction budget",
			mutate:  func(c *Config) { c.Correction.Attempts = 0 },
			wantErr: "correction:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model client is required")
}

func TestExtractEmptySetIsPrecondition(t *testing.T) {
	mock := &testutil.MockLLMClient{}
	p, m := newTestPipeline(t, mock)

	res, err := p.Extract(context.Background(), document.Set{ID: "sub-1"})

	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.Nil(t, res)
	assert.Equal(t, 0, mock.CallCount())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomePrecondition)))
}

func TestExtractFullRun(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: replies(cleanGatherReply, cleanGenerateReply)}
	p, m := newTestPipeline(t, mock)

	res, err := p.Extract(context.Background(), singleDocSet(cleanCoverSheet))
	require.NoError(t, err)
	require.NotNil(t, res)

	// One gathering call, one generation call, nothing to correct.
	assert.Equal(t, 2, mock.CallCount())
	reqs := mock.Requests()
	assert.Equal(t, "extraction", reqs[0].Capability)
	require.NotNil(t, reqs[0].Temperature)
	assert.Zero(t, *reqs[0].Temperature)

	assert.Len(t, res.Evidence, 7)
	assert.Equal(t, 1, res.SegmentsGathered)
	assert.Equal(t, 0, res.SegmentsFailed)

	require.Len(t, res.Persons, 1)
	p0 := res.Persons[0]
	assert.Equal(t, "John", p0.GivenName)
	assert.Equal(t, "Smith", p0.FamilyName)
	assert.Equal(t, record.RoleInventor, p0.Role)
	assert.Equal(t, "jsmith@example.com", p0.Email)

	require.Len(t, res.Organizations, 1)
	assert.Equal(t, "Acme Robotics, Inc.", res.Organizations[0].Name)

	assert.Equal(t, "Adaptive Beam Router", res.ApplicationInfo.Title)
	assert.Equal(t, "23456", res.Correspondence.CustomerNumber)

	assert.InDelta(t, 1.0, res.Metrics.Overall, 1e-9)
	assert.False(t, res.ManualReviewRequired)
	assert.Zero(t, res.CorrectionAttempts)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeOK)))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeReview)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.segments))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.manualReview))
}

func TestExtractGatheringFailureDegrades(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: replies("I could not find anything on this page.")}
	p, m := newTestPipeline(t, mock)

	res, err := p.Extract(context.Background(), singleDocSet(cleanCoverSheet))

	// A failed segment degrades the run, it does not abort it.
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, mock.CallCount(), "generation must be skipped without evidence")

	assert.Empty(t, res.Evidence)
	assert.Equal(t, 0, res.SegmentsGathered)
	assert.Equal(t, 1, res.SegmentsFailed)
	assert.True(t, hasWarningContaining(res, "gathering failed for segment"))
	assert.True(t, hasWarningContaining(res, "no evidence gathered"))

	assert.True(t, res.ManualReviewRequired)
	assert.Zero(t, res.Metrics.Completeness)
	assert.Zero(t, res.Metrics.Confidence)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.gatheringFailures))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeReview)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.manualReview))
}

func TestExtractCorrectionRepairsEmail(t *testing.T) {
	const sheet = `Title of Invention: Adaptive Beam Router
Inventor: John Smith
Residence: Portland, Oregon
E-mail: jsmith@example
Customer Number: 23456
`
	const gatherReply = `[
  {"category": "application_info", "quote": "Title of Invention: Adaptive Beam Router", "page": 1, "confidence": "high"},
  {"category": "inventor", "quote": "Inventor: John Smith", "page": 1, "confidence": "high"},
  {"category": "inventor", "quote": "Residence: Portland, Oregon", "page": 1, "confidence": "high"},
  {"category": "inventor", "quote": "E-mail: jsmith@example", "page": 1, "confidence": "high"},
  {"category": "correspondence", "quote": "Customer Number: 23456", "page": 1, "confidence": "high"}
]`
	const generateReply = `{
  "persons": [{
    "given_name": "John",
    "family_name": "Smith",
    "residence": "Portland, Oregon",
    "email": "jsmith@example",
    "role": "inventor",
    "evidence": ["E2", "E3", "E4"]
  }],
  "correspondence": {"customer_number": "23456", "evidence": ["E5"]},
  "application": {"title": "Adaptive Beam Router", "evidence": ["E1"]}
}`

	mock := &testutil.MockLLMClient{
		Responses: replies(gatherReply, generateReply, `{"value": "jsmith@example.com"}`),
	}
	p, m := newTestPipeline(t, mock)

	res, err := p.Extract(context.Background(), singleDocSet(sheet))
	require.NoError(t, err)
	require.NotNil(t, res)

	require.Equal(t, 3, mock.CallCount())
	corrReq := mock.Requests()[2]
	assert.Equal(t, "correction", corrReq.Capability)
	prompt := corrReq.Messages[len(corrReq.Messages)-1].Content
	assert.Contains(t, prompt, "persons[0].email")
	assert.Contains(t, prompt, "E-mail: jsmith@example")

	require.Len(t, res.Persons, 1)
	assert.Equal(t, "jsmith@example.com", res.Persons[0].Email)
	assert.Equal(t, 1, res.CorrectionAttempts)

	check, ok := latestFieldCheck(res, "persons[0].email")
	require.True(t, ok)
	assert.True(t, check.IsValid)
	assert.True(t, check.Corrected)

	// The repaired field restores the score above the review line.
	assert.InDelta(t, 1.0, res.Metrics.Overall, 1e-9)
	assert.False(t, res.ManualReviewRequired)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.corrections.WithLabelValues(correctionApplied)))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.corrections.WithLabelValues(correctionExhausted)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeOK)))
}

func TestExtractContaminationForcesReview(t *testing.T) {
	const sheet = `Title of Invention: Warehouse Automation System
Inventor: TechCorp Inc.
Residence: Austin, Texas
Customer Number: 34567
`
	const gatherReply = `[
  {"category": "application_info", "quote": "Title of Invention: Warehouse Automation System", "page": 1, "confidence": "high"},
  {"category": "inventor", "quote": "Inventor: TechCorp Inc.", "page": 1, "confidence": "high"},
  {"category": "inventor", "quote": "Residence: Austin, Texas", "page": 1, "confidence": "high"},
  {"category": "correspondence", "quote": "Customer Number: 34567", "page": 1, "confidence": "high"}
]`
	const generateReply = `{
  "persons": [{
    "family_name": "TechCorp Inc.",
    "residence": "Austin, Texas",
    "role": "inventor",
    "evidence": ["E2", "E3"]
  }],
  "correspondence": {"customer_number": "34567", "evidence": ["E4"]},
  "application": {"title": "Warehouse Automation System", "evidence": ["E1"]}
}`

	mock := &testutil.MockLLMClient{Responses: replies(gatherReply, generateReply)}
	p, m := newTestPipeline(t, mock)

	res, err := p.Extract(context.Background(), singleDocSet(sheet))
	require.NoError(t, err)
	require.NotNil(t, res)

	// Contamination is flagged for a human, never auto-repaired and
	// never sent back to the model.
	assert.Equal(t, 2, mock.CallCount())
	require.Len(t, res.Persons, 1)
	assert.Equal(t, "TechCorp Inc.", res.Persons[0].FamilyName)

	finding := findSeparationResult(res, "persons[0].family_name")
	require.NotNil(t, finding)
	assert.False(t, finding.IsValid)
	assert.Contains(t, finding.Errors[0], "corporate indicator")

	assert.True(t, res.ManualReviewRequired)
	assert.Equal(t, 2, res.Metrics.ErrorCount)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.contamination))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeReview)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.manualReview))
}

func TestExtractCancelledContext(t *testing.T) {
	mock := &testutil.MockLLMClient{}
	p, m := newTestPipeline(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Extract(ctx, singleDocSet(cleanCoverSheet))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Equal(t, 0, mock.CallCount())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(outcomeCanceled)))
}

func hasWarningContaining(res *record.ExtractionResult, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func findSeparationResult(res *record.ExtractionResult, path string) *record.ValidationResult {
	for i := range res.Validations {
		r := &res.Validations[i]
		if r.FieldName == path && r.Check == record.CheckSeparation {
			return r
		}
	}
	return nil
}
