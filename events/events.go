// Package events publishes extraction lifecycle events to NATS.
// Publishing is best effort: a run's result is never held hostage by
// the message bus, and a missing connection disables events entirely.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/record"
)

// CompletedSubject carries one message per finished extraction run.
const CompletedSubject = "intake.extraction.completed"

// CompletedEvent summarizes a finished run for downstream consumers.
// It carries scores and counts, never extracted field values; cover
// sheets hold personal data that does not belong on the bus.
type CompletedEvent struct {
	RunID              string    `json:"run_id"`
	SetID              string    `json:"set_id"`
	Documents          int       `json:"documents"`
	OverallScore       float64   `json:"overall_score"`
	ManualReview       bool      `json:"manual_review"`
	ErrorCount         int       `json:"error_count"`
	WarningCount       int       `json:"warning_count"`
	SegmentsFailed     int       `json:"segments_failed"`
	CorrectionAttempts int       `json:"correction_attempts"`
	CompletedAt        time.Time `json:"completed_at"`
}

// Publisher sends events over a NATS connection.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher wraps an existing connection. A nil conn yields a
// publisher whose methods succeed without sending anything.
func NewPublisher(conn *nats.Conn, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials NATS and returns a publisher over the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("intake"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewPublisher(conn, opts...), nil
}

// Completed publishes a completion event for a finished run.
func (p *Publisher) Completed(ctx context.Context, set document.Set, res *record.ExtractionResult) error {
	if p == nil || p.conn == nil {
		return nil // Skip publishing if no NATS connection (graceful degradation)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	evt := buildCompleted(set, res)
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	if err := p.conn.Publish(CompletedSubject, data); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}
	p.logger.Debug("Published completion event",
		"subject", CompletedSubject,
		"run_id", evt.RunID,
		"manual_review", evt.ManualReview)
	return nil
}

// Close drains the connection so queued events flush before shutdown.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", "error", err)
	}
}

func buildCompleted(set document.Set, res *record.ExtractionResult) CompletedEvent {
	return CompletedEvent{
		RunID:              res.RunID,
		SetID:              set.ID,
		Documents:          len(set.Documents),
		OverallScore:       res.Metrics.Overall,
		ManualReview:       res.ManualReviewRequired,
		ErrorCount:         res.Metrics.ErrorCount,
		WarningCount:       res.Metrics.WarningCount,
		SegmentsFailed:     res.SegmentsFailed,
		CorrectionAttempts: res.CorrectionAttempts,
		CompletedAt:        time.Now().UTC(),
	}
}
