// Package generate turns a run's gathered evidence into structured
// filing record candidates. One model call sees the full numbered
// evidence listing; everything the reply claims is checked back against
// the quotes it cites, and a value the quotes do not support is cleared
// to the unknown marker rather than kept on faith.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/record"
)

// Completer is the llm.Client surface generation needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config controls structured generation.
type Config struct {
	// Capability selects the model capability for the generation call.
	Capability string `yaml:"capability"`

	// Timeout bounds the generation call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens caps the reply length. Generation replies carry every
	// candidate at once, so the cap sits well above the gathering one.
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{
		Capability: "extraction",
		Timeout:    120 * time.Second,
		MaxTokens:  8192,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capability == "" {
		return fmt.Errorf("capability is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// Draft is the unmerged output of structured generation: one candidate
// per distinct mention, traceability enforced, nothing consolidated.
type Draft struct {
	// Persons are raw person candidates.
	Persons []record.PersonCandidate `json:"persons,omitempty"`

	// Organizations are raw organization candidates.
	Organizations []record.OrgCandidate `json:"organizations,omitempty"`

	// PriorityClaims are the stated benefit and priority claims.
	PriorityClaims []record.PriorityClaim `json:"priority_claims,omitempty"`

	// Correspondence is the stated correspondence address, when found.
	Correspondence *record.Correspondence `json:"correspondence,omitempty"`

	// Application carries the application-level fields, when found.
	Application *record.ApplicationInfo `json:"application,omitempty"`

	// Classification carries the stated classification, when found.
	Classification *record.Classification `json:"classification,omitempty"`

	// Warnings records what enforcement changed: dropped records,
	// cleared fields, citations that resolved to nothing.
	Warnings []string `json:"warnings,omitempty"`
}

// Generator produces structured candidates from gathered evidence.
type Generator struct {
	config Config
	client Completer
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Generator.
func New(cfg Config, client Completer, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("completer is required")
	}
	g := &Generator{
		config: cfg,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate runs one structured generation pass over the evidence set.
// Candidates come back unmerged, one per distinct mention; consolidation
// happens downstream.
func (g *Generator) Generate(ctx context.Context, evidence *record.EvidenceSet) (*Draft, error) {
	if evidence == nil || evidence.Len() == 0 {
		g.logger.Warn("no evidence to generate from")
		return &Draft{}, nil
	}

	listing, refs := buildEvidenceListing(evidence)

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	temp := 0.0 // generation is deterministic: same evidence, same draft
	resp, err := g.client.Complete(ctx, llm.Request{
		Capability: g.config.Capability,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(listing)},
		},
		Temperature: &temp,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generation call: %w", err)
	}

	reply, err := parseReply(resp.Content)
	if err != nil {
		return nil, err
	}

	draft := g.buildDraft(reply, refs)
	for _, w := range draft.Warnings {
		g.logger.Warn("generation enforcement", "detail", w)
	}
	g.logger.Info("structured generation complete",
		"evidence", evidence.Len(),
		"persons", len(draft.Persons),
		"organizations", len(draft.Organizations),
		"priority_claims", len(draft.PriorityClaims),
		"warnings", len(draft.Warnings))
	return draft, nil
}
