// Package pipeline wires the extraction stages into one run: segment the
// submission, gather evidence per segment, generate candidates,
// consolidate entities, validate, score, and correct what the budget
// allows. A run always produces a best-effort result with explicit
// flags; only a malformed submission or cancellation aborts it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coverlight/intake/consolidate"
	"github.com/coverlight/intake/correction"
	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/document/chunker"
	"github.com/coverlight/intake/evidence"
	"github.com/coverlight/intake/generate"
	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/quality"
	"github.com/coverlight/intake/record"
	"github.com/coverlight/intake/validate"
)

// Completer is the model client surface shared by the gathering,
// generation, and correction stages.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config aggregates the per-stage configurations.
type Config struct {
	Chunker       chunker.Config     `yaml:"chunker"`
	Gathering     evidence.Config    `yaml:"gathering"`
	Generation    generate.Config    `yaml:"generation"`
	Consolidation consolidate.Config `yaml:"consolidation"`
	Validation    validate.Config    `yaml:"validation"`
	Quality       quality.Config     `yaml:"quality"`
	Correction    correction.Config  `yaml:"correction"`
}

// DefaultConfig returns the stage defaults.
func DefaultConfig() Config {
	return Config{
		Chunker:       chunker.DefaultConfig(),
		Gathering:     evidence.DefaultConfig(),
		Generation:    generate.DefaultConfig(),
		Consolidation: consolidate.DefaultConfig(),
		Validation:    validate.DefaultConfig(),
		Quality:       quality.DefaultConfig(),
		Correction:    correction.DefaultConfig(),
	}
}

// Validate checks every stage configuration.
func (c Config) Validate() error {
	if err := c.Chunker.Validate(); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	if err := c.Gathering.Validate(); err != nil {
		return fmt.Errorf("gathering: %w", err)
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Consolidation.Validate(); err != nil {
		return fmt.Errorf("consolidation: %w", err)
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	if err := c.Correction.Validate(); err != nil {
		return fmt.Errorf("correction: %w", err)
	}
	return nil
}

// Deps carries the pipeline's external dependencies.
type Deps struct {
	// Client is the model client used by every model-calling stage.
	Client Completer

	// Metrics receives run observations. Nil creates unregistered
	// collectors.
	Metrics *Metrics
}

// Pipeline runs extractions. Each run owns its result; a Pipeline is
// safe for concurrent Extract calls.
type Pipeline struct {
	chunker      *chunker.Chunker
	gatherer     *evidence.Gatherer
	generator    *generate.Generator
	consolidator *consolidate.Consolidator
	validator    *validate.Validator
	scorer       *quality.Scorer
	loop         *correction.Loop
	metrics      *Metrics
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger shared with every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline from stage configs and dependencies.
func New(cfg Config, deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}

	p := &Pipeline{
		metrics: deps.Metrics,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}

	var err error
	if p.chunker, err = chunker.New(cfg.Chunker); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	if p.gatherer, err = evidence.New(cfg.Gathering, deps.Client, evidence.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("gatherer: %w", err)
	}
	if p.generator, err = generate.New(cfg.Generation, deps.Client, generate.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if p.consolidator, err = consolidate.New(cfg.Consolidation, consolidate.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("consolidator: %w", err)
	}
	if p.validator, err = validate.New(cfg.Validation, validate.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}
	if p.scorer, err = quality.New(cfg.Quality, quality.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	if p.loop, err = correction.New(cfg.Correction, deps.Client, p.validator, correction.WithLogger(p.logger)); err != nil {
		return nil, fmt.Errorf("correction loop: %w", err)
	}
	return p, nil
}

// Extract runs the full pipeline over one submission. Deficiencies ride
// on the result as validation entries, warnings, and the manual-review
// flag; the returned error is non-nil only for a malformed submission or
// a cancelled context, in which case the partial result is discarded.
func (p *Pipeline) Extract(ctx context.Context, set document.Set) (*record.ExtractionResult, error) {
	start := time.Now()

	if err := set.Validate(); err != nil {
		p.metrics.runs.WithLabelValues(outcomePrecondition).Inc()
		return nil, NewPreconditionError(err)
	}

	res := record.NewExtractionResult()
	logger := p.logger.With("run_id", res.RunID, "set_id", set.ID)
	logger.Info("extraction run starting", "documents", len(set.Documents))

	segments := p.chunker.SegmentSet(set)
	if len(segments) == 0 {
		p.metrics.runs.WithLabelValues(outcomePrecondition).Inc()
		return nil, NewPreconditionError(fmt.Errorf("submission produced no segments"))
	}
	p.metrics.segments.Add(float64(len(segments)))

	if err := p.checkpoint(ctx, logger, "segmentation"); err != nil {
		return nil, err
	}

	gathered, err := p.gatherer.GatherAll(ctx, set, segments)
	if err != nil {
		return nil, p.canceled(logger, "gathering", err)
	}
	res.Evidence = gathered.Records
	res.SegmentsGathered = gathered.Gathered
	res.SegmentsFailed = len(gathered.Failures)
	for _, f := range gathered.Failures {
		gf := &GatheringFailure{FileID: f.FileID, SegmentIndex: f.SegmentIndex, Err: f.Err}
		res.AddWarning(gf.Error())
		p.metrics.gatheringFailures.Inc()
	}

	if err := p.checkpoint(ctx, logger, "gathering"); err != nil {
		return nil, err
	}

	if len(res.Evidence) == 0 {
		res.AddWarning("no evidence gathered from any segment")
		logger.Warn("No evidence gathered; skipping generation")
	} else {
		draft, err := p.generator.Generate(ctx, res.EvidenceIndex())
		if err != nil {
			if ctx.Err() != nil {
				return nil, p.canceled(logger, "generation", ctx.Err())
			}
			res.AddWarning(fmt.Sprintf("generation failed: %v", err))
			logger.Error("Generation failed; scoring the empty record", "error", err)
		} else {
			p.adopt(res, draft)
		}
	}

	if err := p.checkpoint(ctx, logger, "generation"); err != nil {
		return nil, err
	}

	res.Persons = p.consolidator.Persons(res.Persons)
	res.Organizations = p.consolidator.Organizations(res.Organizations)
	res.PriorityClaims = p.consolidator.Claims(res.PriorityClaims)

	sep := p.validator.Separation(res.Persons, res.Organizations)
	res.AddValidation(sep.Results...)
	if sep.Contaminated() {
		cd := &ContaminationDetected{Findings: sep.ErrorCount}
		p.metrics.contamination.Add(float64(sep.ErrorCount))
		logger.Warn("Entity contamination detected", "findings", sep.ErrorCount, "error", cd.Error())
	}

	fieldResults := p.validator.Fields(res)
	crossResults := p.validator.CrossFields(res)
	res.AddValidation(fieldResults...)
	res.AddValidation(crossResults...)
	p.logFailures(logger, fieldResults, crossResults)

	if err := p.checkpoint(ctx, logger, "validation"); err != nil {
		return nil, err
	}

	metrics, review := p.scorer.Score(res)
	res.Metrics = metrics
	res.ManualReviewRequired = review

	outcomes, err := p.loop.Run(ctx, res)
	if err != nil {
		return nil, p.canceled(logger, "correction", err)
	}
	for _, out := range outcomes {
		if out.Corrected {
			p.metrics.corrections.WithLabelValues(correctionApplied).Inc()
			continue
		}
		p.metrics.corrections.WithLabelValues(correctionExhausted).Inc()
		ce := &CorrectionExhausted{Field: out.Path, Attempts: out.Attempts}
		logger.Warn("Correction budget exhausted", "field", out.Path, "error", ce.Error())
	}
	if len(outcomes) > 0 {
		metrics, review = p.scorer.Score(res)
		res.Metrics = metrics
		res.ManualReviewRequired = review
	}

	outcome := outcomeOK
	if review {
		outcome = outcomeReview
		p.metrics.manualReview.Inc()
	}
	p.metrics.runs.WithLabelValues(outcome).Inc()
	p.metrics.duration.Observe(time.Since(start).Seconds())

	logger.Info("extraction run finished",
		"overall", res.Metrics.Overall,
		"manual_review", review,
		"segments_failed", res.SegmentsFailed,
		"corrections", res.CorrectionAttempts,
		"duration", time.Since(start))
	return res, nil
}

// adopt copies the generated draft onto the result.
func (p *Pipeline) adopt(res *record.ExtractionResult, draft *generate.Draft) {
	res.Persons = draft.Persons
	res.Organizations = draft.Organizations
	res.PriorityClaims = draft.PriorityClaims
	if draft.Correspondence != nil {
		res.Correspondence = *draft.Correspondence
	}
	if draft.Application != nil {
		res.ApplicationInfo = *draft.Application
	}
	if draft.Classification != nil {
		res.Classification = *draft.Classification
	}
	for _, w := range draft.Warnings {
		res.AddWarning(w)
	}
}

// checkpoint enforces cooperative cancellation between stages.
func (p *Pipeline) checkpoint(ctx context.Context, logger *slog.Logger, stage string) error {
	if err := ctx.Err(); err != nil {
		return p.canceled(logger, stage, err)
	}
	return nil
}

// canceled records a cancelled run. The partial result is discarded.
func (p *Pipeline) canceled(logger *slog.Logger, stage string, err error) error {
	p.metrics.runs.WithLabelValues(outcomeCanceled).Inc()
	logger.Info("extraction run canceled", "stage", stage)
	return fmt.Errorf("run canceled after %s: %w", stage, err)
}

// logFailures logs each failed check as a typed validation failure.
func (p *Pipeline) logFailures(logger *slog.Logger, resultSets ...[]record.ValidationResult) {
	failed := 0
	for _, results := range resultSets {
		for _, r := range results {
			if r.IsValid {
				continue
			}
			failed++
			vf := &ValidationFailure{Field: r.FieldName, Errors: r.Errors}
			logger.Debug("Validation failure", "field", r.FieldName, "error", vf.Error())
		}
	}
	if failed > 0 {
		logger.Warn("Validation failures recorded", "count", failed)
	}
}
