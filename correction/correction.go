// Package correction runs the bounded re-prompt loop for recoverable
// deficiencies. A deficiency is recoverable when it is a field-format
// failure or a required field left missing despite gathered evidence;
// structural problems (contamination, cross-field conflicts) are not
// corrected, they are reviewed. Each field gets a small fixed attempt
// budget, fields are corrected independently and concurrently, and an
// exhausted budget leaves the field invalid rather than hiding it.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/record"
	"github.com/coverlight/intake/validate"
)

// Completer is the llm.Client surface the loop needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config controls the correction loop.
type Config struct {
	// Capability routes correction calls to a model.
	Capability string `yaml:"capability"`

	// Attempts is the per-field retry budget.
	Attempts int `yaml:"attempts"`

	// Concurrency bounds how many fields are corrected in parallel.
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds each correction call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxTokens limits the reply length.
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns the correction defaults.
func DefaultConfig() Config {
	return Config{
		Capability:  "correction",
		Attempts:    2,
		Concurrency: 4,
		Timeout:     60 * time.Second,
		MaxTokens:   512,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capability == "" {
		return fmt.Errorf("capability must not be empty")
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Outcome reports what happened to one field.
type Outcome struct {
	// Path is the corrected field's path.
	Path string

	// Corrected reports whether an attempt produced a value that passed
	// re-validation.
	Corrected bool

	// Attempts counts the model calls spent on the field.
	Attempts int

	// Value is the accepted value, normalized where the field has a
	// canonical form.
	Value string
}

// Loop corrects flagged fields one at a time.
type Loop struct {
	config    Config
	client    Completer
	validator *validate.Validator
	logger    *slog.Logger

	// mu serializes result mutation and re-validation; model calls run
	// outside it.
	mu sync.Mutex
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a correction Loop.
func New(cfg Config, client Completer, validator *validate.Validator, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	l := &Loop{
		config:    cfg,
		client:    client,
		validator: validator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run corrects every recoverable deficiency on the result. Fields are
// independent and run concurrently; attempts on one field are
// sequential. Run returns an error only when the context is cancelled;
// a field that cannot be fixed is an outcome, not an error.
func (l *Loop) Run(ctx context.Context, res *record.ExtractionResult) ([]Outcome, error) {
	tasks := l.buildTasks(res)
	if len(tasks) == 0 {
		return nil, nil
	}
	l.logger.Info("correction loop starting", "fields", len(tasks), "budget", l.config.Attempts)

	outcomes := make([]Outcome, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			out, err := l.correctField(gctx, res, t)
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("correction loop: %w", err)
	}

	corrected := 0
	for _, out := range outcomes {
		if out.Corrected {
			corrected++
			continue
		}
		res.AddWarning(fmt.Sprintf("correction exhausted for %s after %d attempt(s); field remains invalid",
			out.Path, out.Attempts))
	}
	l.logger.Info("correction loop finished", "fields", len(tasks), "corrected", corrected)
	return outcomes, nil
}

// correctField spends the budget on one field: ask, patch, re-validate,
// keep on success, revert and retry on failure.
func (l *Loop) correctField(ctx context.Context, res *record.ExtractionResult, t task) (Outcome, error) {
	out := Outcome{Path: t.path}
	for attempt := 1; attempt <= l.config.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Attempts = attempt
		l.countAttempt(res)

		value, ok, err := l.askModel(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			l.logger.Warn("correction call failed",
				"field", t.path, "attempt", attempt, "error", err)
			continue
		}
		if !ok {
			l.logger.Info("model declined to correct", "field", t.path, "attempt", attempt)
			continue
		}

		if accepted, applied := l.applyPatch(res, t, value); applied {
			out.Corrected = true
			out.Value = accepted
			l.logger.Info("field corrected",
				"field", t.path, "attempt", attempt, "value", accepted)
			return out, nil
		}
		l.logger.Info("corrected value failed re-validation",
			"field", t.path, "attempt", attempt, "value", value)
	}
	return out, nil
}

func (l *Loop) askModel(ctx context.Context, t task) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	temp := 0.0 // corrections quote evidence, they do not improvise
	resp, err := l.client.Complete(ctx, llm.Request{
		Capability: l.config.Capability,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(t)},
		},
		Temperature: &temp,
		MaxTokens:   l.config.MaxTokens,
	})
	if err != nil {
		return "", false, fmt.Errorf("correction call: %w", err)
	}
	return parseReply(resp.Content)
}

// applyPatch writes the value, re-runs the field's own check, and keeps
// the patch only if it passes. Fields without a format check accept the
// patch directly. The appended result carries Corrected so the scorer
// counts the latest verdict.
func (l *Loop) applyPatch(res *record.ExtractionResult, t task, value string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := resolveSlot(res, t.path)
	if !ok {
		return "", false
	}
	prev := *slot
	*slot = value

	check, hasCheck := l.validator.Field(res, t.path)
	if hasCheck {
		if !check.IsValid {
			*slot = prev
			return "", false
		}
		if check.NormalizedValue != "" {
			*slot = check.NormalizedValue
		}
		check.Corrected = true
		res.AddValidation(check)
		return *slot, true
	}

	res.AddValidation(record.ValidationResult{
		FieldName:       t.path,
		Check:           record.CheckField,
		IsValid:         true,
		NormalizedValue: *slot,
		ConfidenceScore: 0.7,
		Corrected:       true,
	})
	return *slot, true
}

func (l *Loop) countAttempt(res *record.ExtractionResult) {
	l.mu.Lock()
	res.CorrectionAttempts++
	l.mu.Unlock()
}
