// Package quality scores finished extraction runs. Four components
// feed a weighted overall score: completeness (required fields
// populated), accuracy (checks passed), confidence (candidate evidence
// strength, discounted by gathering failures), and consistency
// (cross-field checks passed). The scorer also decides whether the run
// needs a human before anything is filed.
package quality

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/coverlight/intake/record"
)

// Config controls scoring.
type Config struct {
	// WeightCompleteness weighs the required-field component.
	WeightCompleteness float64 `yaml:"weight_completeness"`

	// WeightAccuracy weighs the checks-passed component.
	WeightAccuracy float64 `yaml:"weight_accuracy"`

	// WeightConfidence weighs the evidence-strength component.
	WeightConfidence float64 `yaml:"weight_confidence"`

	// WeightConsistency weighs the cross-field component.
	WeightConsistency float64 `yaml:"weight_consistency"`

	// ReviewThreshold is the overall score below which a run is flagged
	// for manual review.
	ReviewThreshold float64 `yaml:"review_threshold"`
}

// DefaultConfig returns the scoring defaults.
func DefaultConfig() Config {
	return Config{
		WeightCompleteness: 0.30,
		WeightAccuracy:     0.30,
		WeightConfidence:   0.20,
		WeightConsistency:  0.20,
		ReviewThreshold:    0.80,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"completeness": c.WeightCompleteness,
		"accuracy":     c.WeightAccuracy,
		"confidence":   c.WeightConfidence,
		"consistency":  c.WeightConsistency,
	} {
		if w < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", name, w)
		}
	}
	sum := c.WeightCompleteness + c.WeightAccuracy + c.WeightConfidence + c.WeightConsistency
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	if c.ReviewThreshold <= 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("review threshold must be in (0, 1], got %v", c.ReviewThreshold)
	}
	return nil
}

// Scorer computes quality metrics for extraction runs.
type Scorer struct {
	config Config
	logger *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scorer.
func New(cfg Config, opts ...Option) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Scorer{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Score computes the metrics for a run and reports whether it needs
// manual review. Review is forced by a low overall score, by any
// separation error, or by any required field left entirely missing,
// whichever fires first.
func (s *Scorer) Score(res *record.ExtractionResult) (record.QualityMetrics, bool) {
	required := RequiredFields(res)
	populated := 0
	for _, f := range required {
		if f.Populated {
			populated++
		}
	}
	completeness := 1.0
	if len(required) > 0 {
		completeness = float64(populated) / float64(len(required))
	}

	effective := latestResults(res.Validations)
	var validated, valid, crossRun, crossPassed, errs, warns int
	separationError := false
	for _, r := range effective {
		errs += len(r.Errors)
		warns += len(r.Warnings)
		if r.Check == record.CheckSeparation && len(r.Errors) > 0 {
			separationError = true
		}
		if r.Check == record.CheckCrossField {
			crossRun++
			if r.IsValid {
				crossPassed++
			}
			continue
		}
		validated++
		if r.IsValid {
			valid++
		}
	}
	accuracy := 1.0
	if validated > 0 {
		accuracy = float64(valid) / float64(validated)
	}
	consistency := 1.0
	if crossRun > 0 {
		consistency = float64(crossPassed) / float64(crossRun)
	}

	confidence := meanConfidence(res) * res.SegmentSuccessRatio()

	overall := s.config.WeightCompleteness*completeness +
		s.config.WeightAccuracy*accuracy +
		s.config.WeightConfidence*confidence +
		s.config.WeightConsistency*consistency

	metrics := record.QualityMetrics{
		Completeness:      completeness,
		Accuracy:          accuracy,
		Confidence:        confidence,
		Consistency:       consistency,
		Overall:           overall,
		RequiredPopulated: populated,
		RequiredTotal:     len(required),
		ErrorCount:        errs,
		WarningCount:      warns,
	}

	review := overall < s.config.ReviewThreshold || separationError || populated < len(required)
	s.logger.Info("scored run",
		"overall", round3(overall),
		"completeness", round3(completeness),
		"accuracy", round3(accuracy),
		"confidence", round3(confidence),
		"consistency", round3(consistency),
		"manual_review", review)
	return metrics, review
}

// latestResults keeps the newest result per field and check kind.
// Correction appends re-validation results; only the latest verdict on
// a field counts toward the score.
func latestResults(results []record.ValidationResult) []record.ValidationResult {
	type key struct {
		field string
		check record.CheckKind
	}
	idx := make(map[key]int)
	var out []record.ValidationResult
	for _, r := range results {
		k := key{r.FieldName, r.Check}
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}

// meanConfidence averages candidate confidence across persons and
// organizations; zero when there are no candidates to be confident in.
func meanConfidence(res *record.ExtractionResult) float64 {
	sum, n := 0.0, 0
	for _, p := range res.Persons {
		sum += p.ConfidenceScore
		n++
	}
	for _, o := range res.Organizations {
		sum += o.ConfidenceScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
