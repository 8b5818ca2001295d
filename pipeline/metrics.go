package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes for the runs counter.
const (
	outcomeOK           = "ok"
	outcomeReview       = "review"
	outcomePrecondition = "precondition"
	outcomeCanceled     = "canceled"
)

// Correction outcomes for the corrections counter.
const (
	correctionApplied   = "applied"
	correctionExhausted = "exhausted"
)

// Metrics holds the pipeline's prometheus collectors. A nil registerer
// leaves them unregistered but usable, so embedded runs and tests do not
// fight over the default registry.
type Metrics struct {
	runs              *prometheus.CounterVec
	segments          prometheus.Counter
	gatheringFailures prometheus.Counter
	contamination     prometheus.Counter
	corrections       *prometheus.CounterVec
	manualReview      prometheus.Counter
	duration          prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "runs_total",
			Help:      "Extraction runs by outcome.",
		}, []string{"outcome"}),
		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "segments_total",
			Help:      "Segments produced by the chunker.",
		}),
		gatheringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "gathering_failures_total",
			Help:      "Segments whose evidence gathering failed.",
		}),
		contamination: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "contamination_findings_total",
			Help:      "Entity separation errors detected.",
		}),
		corrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "corrections_total",
			Help:      "Targeted field corrections by outcome.",
		}, []string{"outcome"}),
		manualReview: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "manual_review_total",
			Help:      "Runs flagged for manual review.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intake",
			Name:      "run_duration_seconds",
			Help:      "Extraction run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.segments, m.gatheringFailures,
			m.contamination, m.corrections, m.manualReview, m.duration)
	}
	return m
}
