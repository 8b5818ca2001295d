package correction

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/record"
	"github.com/coverlight/intake/validate"
)

// fakeClient answers correction prompts from a reply function keyed on
// the user prompt. Safe for the loop's concurrent field workers.
type fakeClient struct {
	mu      sync.Mutex
	fn      func(prompt string) (string, error)
	calls   int
	prompts []string
	last    llm.Request
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prompt := req.Messages[len(req.Messages)-1].Content
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.last = req
	content, err := f.fn(prompt)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: content, FinishReason: "stop"}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticReply(content string) *fakeClient {
	return &fakeClient{fn: func(string) (string, error) {
		return content, nil
	}}
}

func newTestLoop(t *testing.T, client Completer) *Loop {
	t.Helper()
	v, err := validate.New(validate.Config{})
	require.NoError(t, err)
	l, err := New(DefaultConfig(), client, v)
	require.NoError(t, err)
	return l
}

// flaggedResult is a run with one invalid inventor email and everything
// required already populated.
func flaggedResult() *record.ExtractionResult {
	res := record.NewExtractionResult()
	res.ApplicationInfo.Title = "Adaptive Beam Router"
	res.Correspondence.Email = "docket@firmexample.com"
	res.Persons = []record.PersonCandidate{{
		ID:              "p1",
		GivenName:       "John",
		FamilyName:      "Smith",
		Residence:       "Portland, US",
		Email:           "jsmith@example",
		Role:            record.RoleInventor,
		Completeness:    record.CompletenessPartial,
		ConfidenceScore: 0.9,
		Evidence:        []string{"e1"},
		Provenance: map[string]record.FieldOrigin{
			"email": {EvidenceIDs: []string{"e2"}},
		},
	}}
	res.Evidence = []record.EvidenceRecord{
		{
			ID: "e1", Category: record.CategoryInventor,
			RawText: "Inventor: John Smith, Portland", SourcePage: 2,
			SourceSection: "Inventors", Confidence: record.LevelHigh,
		},
		{
			ID: "e2", Category: record.CategoryInventor,
			RawText: "E-mail: jsmith@example.com", SourcePage: 2,
			SourceSection: "Inventors", Confidence: record.LevelHigh,
		},
	}
	res.AddValidation(record.ValidationResult{
		FieldName:       "persons[0].email",
		Check:           record.CheckField,
		IsValid:         false,
		Errors:          []string{"not a valid email address"},
		ConfidenceScore: 0.95,
	})
	res.SegmentsGathered = 3
	return res
}

func outcomeFor(t *testing.T, outcomes []Outcome, path string) Outcome {
	t.Helper()
	for _, out := range outcomes {
		if out.Path == path {
			return out
		}
	}
	t.Fatalf("no outcome for %s", path)
	return Outcome{}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Capability = ""
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Attempts = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Concurrency = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Timeout = 0
	assert.Error(t, bad.Validate())
}

func TestRun_CorrectsInvalidEmail(t *testing.T) {
	res := flaggedResult()
	fake := staticReply(`{"value": "jsmith@example.com"}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.Equal(t, "persons[0].email", out.Path)
	assert.True(t, out.Corrected)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "jsmith@example.com", out.Value)

	assert.Equal(t, "jsmith@example.com", res.Persons[0].Email)
	assert.Equal(t, 1, res.CorrectionAttempts)
	assert.Empty(t, res.Warnings)

	last := res.Validations[len(res.Validations)-1]
	assert.Equal(t, "persons[0].email", last.FieldName)
	assert.Equal(t, record.CheckField, last.Check)
	assert.True(t, last.IsValid)
	assert.True(t, last.Corrected)

	// The prompt names the field, shows the bad value, and quotes the
	// provenance evidence rather than the whole inventor block.
	require.Len(t, fake.prompts, 1)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Field: persons[0].email")
	assert.Contains(t, prompt, "Current value: jsmith@example")
	assert.Contains(t, prompt, "not a valid email address")
	assert.Contains(t, prompt, "E-mail: jsmith@example.com")
	assert.NotContains(t, prompt, "Inventor: John Smith")

	assert.Equal(t, "correction", fake.last.Capability)
	require.NotNil(t, fake.last.Temperature)
	assert.Zero(t, *fake.last.Temperature)
}

func TestRun_FillsMissingTitle(t *testing.T) {
	res := flaggedResult()
	res.ApplicationInfo.Title = record.Unknown
	res.Persons[0].Email = "jsmith@example.com"
	res.Validations = nil
	res.Evidence = append(res.Evidence, record.EvidenceRecord{
		ID: "e3", Category: record.CategoryApplicationInfo,
		RawText: `Title of Invention: "Adaptive Beam Router"`, SourcePage: 1,
		SourceSection: "Header", Confidence: record.LevelHigh,
	})

	fake := staticReply(`{"value": "Adaptive Beam Router"}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "application_info.title", outcomes[0].Path)
	assert.True(t, outcomes[0].Corrected)
	assert.Equal(t, "Adaptive Beam Router", res.ApplicationInfo.Title)

	// The title has no format check of its own, so acceptance is
	// recorded with a synthetic field result.
	require.Len(t, res.Validations, 1)
	v := res.Validations[0]
	assert.Equal(t, "application_info.title", v.FieldName)
	assert.True(t, v.IsValid)
	assert.True(t, v.Corrected)
	assert.InDelta(t, 0.7, v.ConfidenceScore, 1e-9)

	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "Current value: (missing)")
	assert.Contains(t, fake.prompts[0], "required field is missing")
	assert.Contains(t, fake.prompts[0], "Adaptive Beam Router")
}

func TestRun_DeclinedLeavesFieldAlone(t *testing.T) {
	res := flaggedResult()
	fake := staticReply(`{"value": null}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	out := outcomes[0]
	assert.False(t, out.Corrected)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "jsmith@example", res.Persons[0].Email)
	assert.Equal(t, 2, res.CorrectionAttempts)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "correction exhausted for persons[0].email")
	assert.Contains(t, res.Warnings[0], "2 attempt(s)")
}

func TestRun_RevertsValueThatFailsRecheck(t *testing.T) {
	res := flaggedResult()
	fake := staticReply(`{"value": "still not an email"}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.False(t, outcomes[0].Corrected)
	assert.Equal(t, 2, outcomes[0].Attempts)
	assert.Equal(t, 2, fake.callCount())

	// The rejected value never sticks and no passing result is appended.
	assert.Equal(t, "jsmith@example", res.Persons[0].Email)
	require.Len(t, res.Validations, 1)
	require.Len(t, res.Warnings, 1)
}

func TestRun_ConcurrentFields(t *testing.T) {
	res := flaggedResult()
	res.ApplicationInfo.FilingDate = "sometime in spring"
	res.ApplicationInfo.Evidence = []string{"e3"}
	res.Evidence = append(res.Evidence, record.EvidenceRecord{
		ID: "e3", Category: record.CategoryApplicationInfo,
		RawText: "Filed on March 15, 2024", SourcePage: 1,
		Confidence: record.LevelHigh,
	})
	res.AddValidation(record.ValidationResult{
		FieldName: "application_info.filing_date",
		Check:     record.CheckField,
		IsValid:   false,
		Errors:    []string{"unrecognized date format"},
	})

	fake := &fakeClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "filing_date") {
			return `{"value": "March 15, 2024"}`, nil
		}
		return `{"value": "jsmith@example.com"}`, nil
	}}
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	email := outcomeFor(t, outcomes, "persons[0].email")
	date := outcomeFor(t, outcomes, "application_info.filing_date")
	assert.True(t, email.Corrected)
	assert.True(t, date.Corrected)

	assert.Equal(t, "jsmith@example.com", res.Persons[0].Email)
	assert.Equal(t, "2024-03-15", res.ApplicationInfo.FilingDate)
	assert.Equal(t, "2024-03-15", date.Value)
	assert.Equal(t, 2, res.CorrectionAttempts)
}

func TestRun_NoTasksNoCalls(t *testing.T) {
	res := flaggedResult()
	res.Persons[0].Email = "jsmith@example.com"
	res.Validations = nil

	fake := staticReply(`{"value": "never asked"}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Zero(t, fake.callCount())
	assert.Zero(t, res.CorrectionAttempts)
}

func TestRun_CancelledContext(t *testing.T) {
	res := flaggedResult()
	fake := staticReply(`{"value": "jsmith@example.com"}`)
	loop := newTestLoop(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "jsmith@example", res.Persons[0].Email)
}

func TestRun_MissingWithoutEvidenceSkipped(t *testing.T) {
	res := flaggedResult()
	res.ApplicationInfo.Title = record.Unknown
	res.Persons[0].Email = "jsmith@example.com"
	res.Validations = nil
	// The gathered evidence covers inventors only; nothing could back a
	// title, so the loop must not ask for one.

	fake := staticReply(`{"value": "A Guessed Title"}`)
	loop := newTestLoop(t, fake)

	outcomes, err := loop.Run(context.Background(), res)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Zero(t, fake.callCount())
	assert.Equal(t, record.Unknown, res.ApplicationInfo.Title)
}

func TestResolveSlot(t *testing.T) {
	res := flaggedResult()
	res.Organizations = []record.OrgCandidate{{ID: "o1", Name: "Acme Robotics, Inc."}}
	res.PriorityClaims = []record.PriorityClaim{{
		ID: "c1", Kind: record.ClaimDomestic,
		PriorAppID: "63/123,456", FilingDate: "2024-03-15",
	}}

	cases := []struct {
		path string
		ok   bool
	}{
		{"application_info.title", true},
		{"application_info.filing_date", true},
		{"correspondence.customer_number", true},
		{"persons[0].given_name", true},
		{"persons[0].email", true},
		{"organizations[0].name", true},
		{"priority_claims[0].filing_date", true},
		{"priority_claims[0].prior_application_number", true},
		{"persons[0].address", false},
		{"persons[9].email", false},
		{"persons[x].email", false},
		{"separation", false},
		{"application_info.unheard_of", false},
	}
	for _, tc := range cases {
		_, ok := resolveSlot(res, tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
	}

	// Slots are live pointers into the result.
	slot, ok := resolveSlot(res, "application_info.title")
	require.True(t, ok)
	*slot = "Replaced"
	assert.Equal(t, "Replaced", res.ApplicationInfo.Title)
}

func TestParseReply(t *testing.T) {
	value, ok, err := parseReply(`{"value": "18765432"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "18765432", value)

	value, ok, err = parseReply("```json\n{\"value\": \"18765432\"}\n```")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "18765432", value)

	_, ok, err = parseReply(`{"value": null}`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = parseReply(`{"value": "unknown"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = parseReply(`{"value": "   "}`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseReply("I cannot determine the value.")
	assert.Error(t, err)

	_, _, err = parseReply(`{"value": 42}`)
	assert.Error(t, err)
}

func TestBuildTasks_SkipsUnresolvablePaths(t *testing.T) {
	res := flaggedResult()
	res.AddValidation(record.ValidationResult{
		FieldName: "persons[0].address",
		Check:     record.CheckField,
		IsValid:   false,
		Errors:    []string{"address incomplete: missing city"},
	})
	res.AddValidation(record.ValidationResult{
		FieldName: "persons[0].family_name",
		Check:     record.CheckSeparation,
		IsValid:   false,
		Errors:    []string{"corporate indicator in a person name"},
	})

	loop := newTestLoop(t, staticReply(`{"value": "x"}`))
	tasks := loop.buildTasks(res)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persons[0].email", tasks[0].path)
}

func TestBuildTasks_LatestResultWins(t *testing.T) {
	res := flaggedResult()
	res.AddValidation(record.ValidationResult{
		FieldName:       "persons[0].email",
		Check:           record.CheckField,
		IsValid:         true,
		NormalizedValue: "jsmith@example.com",
		Corrected:       true,
	})

	loop := newTestLoop(t, staticReply(`{"value": "x"}`))
	assert.Empty(t, loop.buildTasks(res))
}
