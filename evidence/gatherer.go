// Package evidence implements the gathering stage: one model call per
// document segment, producing verbatim evidence records. The gatherer
// never fabricates: quotes that do not occur in the segment are dropped,
// and a segment whose call or reply fails is marked failed and excluded
// rather than guessed at.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/record"
)

// Completer is the slice of the LLM client the gatherer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config holds gathering parameters.
type Config struct {
	// Capability requested for text and form segments.
	Capability string `yaml:"capability"`

	// VisionCapability requested for image-derived segments.
	VisionCapability string `yaml:"vision_capability"`

	// Workers bounds concurrent segment calls in GatherAll.
	Workers int `yaml:"workers"`

	// SegmentTimeout is the per-segment call budget.
	SegmentTimeout time.Duration `yaml:"segment_timeout"`

	// MaxTokens caps the reply length per call. Zero uses the endpoint default.
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns the gathering defaults.
func DefaultConfig() Config {
	return Config{
		Capability:       "extraction",
		VisionCapability: "vision",
		Workers:          4,
		SegmentTimeout:   90 * time.Second,
		MaxTokens:        4096,
	}
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.Capability == "" {
		return fmt.Errorf("capability is required")
	}
	if c.VisionCapability == "" {
		return fmt.Errorf("vision capability is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.SegmentTimeout <= 0 {
		return fmt.Errorf("segment timeout must be positive, got %v", c.SegmentTimeout)
	}
	return nil
}

// Gatherer runs per-segment evidence gathering.
type Gatherer struct {
	config Config
	client Completer
	logger *slog.Logger
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gatherer) {
		g.logger = logger
	}
}

// New creates a Gatherer with the given config and model client.
func New(cfg Config, client Completer, opts ...Option) (*Gatherer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("completer is required")
	}

	g := &Gatherer{
		config: cfg,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Gather extracts evidence from a single segment. The returned records
// carry verified verbatim quotes; reply items with unrecognized
// categories or quotes absent from the segment are dropped and logged.
func (g *Gatherer) Gather(ctx context.Context, format document.Format, seg document.Segment) ([]record.EvidenceRecord, error) {
	capability := g.config.Capability
	if format == document.FormatImage {
		capability = g.config.VisionCapability
	}

	// Gathering is deterministic: same segment, same evidence.
	temp := 0.0
	resp, err := g.client.Complete(ctx, llm.Request{
		Capability:  capability,
		Messages:    buildMessages(format, seg),
		Temperature: &temp,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
	}

	items, err := parseReply(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
	}

	records := make([]record.EvidenceRecord, 0, len(items))
	for _, item := range items {
		category := record.ParseCategory(item.Category)
		if category == record.CategoryUnknown {
			g.logger.Warn("Dropping evidence with unrecognized category",
				"category", item.Category,
				"file_id", seg.FileID,
				"segment", seg.Index)
			continue
		}

		if !quoteInSegment(item.Quote, seg.Content) {
			g.logger.Warn("Dropping non-verbatim quote",
				"category", item.Category,
				"file_id", seg.FileID,
				"segment", seg.Index,
				"quote", item.Quote)
			continue
		}

		rec := record.NewEvidenceRecord(category, item.Quote)
		rec.SourcePage = item.Page
		if rec.SourcePage < seg.PageStart || rec.SourcePage > seg.PageEnd {
			rec.SourcePage = seg.PageStart
		}
		rec.SourceSection = item.Section
		if rec.SourceSection == "" {
			rec.SourceSection = seg.Section
		}
		rec.Confidence = record.ParseLevel(item.Confidence)
		rec.FileID = seg.FileID
		rec.SegmentIndex = seg.Index

		records = append(records, rec)
	}

	return records, nil
}

// SegmentFailure identifies a segment whose gathering failed.
type SegmentFailure struct {
	FileID       string
	SegmentIndex int
	Err          error
}

// Result aggregates gathering over a whole submission.
type Result struct {
	// Records holds every gathered record, ordered by segment index.
	Records []record.EvidenceRecord

	// Gathered counts segments that produced a usable reply.
	Gathered int

	// Failures lists segments excluded from Records. The quality scorer
	// degrades run confidence by their count.
	Failures []SegmentFailure
}

// SegmentsAttempted returns the number of segments gathering ran over.
func (r *Result) SegmentsAttempted() int {
	return r.Gathered + len(r.Failures)
}

// GatherAll gathers over every segment with bounded concurrency. A
// failing segment is recorded in Failures, not fatal; the only error
// GatherAll itself returns is cancellation.
func (g *Gatherer) GatherAll(ctx context.Context, set document.Set, segments []document.Segment) (*Result, error) {
	formats := make(map[string]document.Format, len(set.Documents))
	for _, d := range set.Documents {
		formats[d.ID] = d.Format
	}

	perSegment := make([][]record.EvidenceRecord, len(segments))
	failed := make([]error, len(segments))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Workers)

	for i, seg := range segments {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			callCtx, cancel := context.WithTimeout(gctx, g.config.SegmentTimeout)
			defer cancel()

			recs, err := g.Gather(callCtx, formats[seg.FileID], seg)
			if err != nil {
				if gctx.Err() != nil {
					// Run canceled; the segment did not fail on its own.
					return gctx.Err()
				}
				failed[i] = err
				return nil
			}
			perSegment[i] = recs
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, seg := range segments {
		if failed[i] != nil {
			g.logger.Warn("Segment gathering failed",
				"file_id", seg.FileID,
				"segment", seg.Index,
				"error", failed[i])
			result.Failures = append(result.Failures, SegmentFailure{
				FileID:       seg.FileID,
				SegmentIndex: seg.Index,
				Err:          failed[i],
			})
			continue
		}
		result.Gathered++
		result.Records = append(result.Records, perSegment[i]...)
	}

	return result, nil
}
