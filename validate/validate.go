// Package validate checks extraction results before scoring. Three
// check families run over a result: entity separation (organization
// data bleeding into person candidates and vice versa), single-field
// formats, and cross-field relationships. Validators only annotate:
// they append ValidationResults and never mutate the data they judge.
package validate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/coverlight/intake/record"
)

// Config controls validation.
type Config struct {
	// ExtraCorporateMarkers extends the built-in corporate indicator
	// lexicon. Extensions are append-only: the built-in floor always
	// applies.
	ExtraCorporateMarkers []string `yaml:"extra_corporate_markers"`

	// ExtraBusinessTokens extends the built-in business-address token
	// lexicon.
	ExtraBusinessTokens []string `yaml:"extra_business_tokens"`
}

// DefaultConfig returns the validation defaults.
func DefaultConfig() Config {
	return Config{}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, m := range c.ExtraCorporateMarkers {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("extra corporate marker must not be blank")
		}
	}
	for _, t := range c.ExtraBusinessTokens {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("extra business token must not be blank")
		}
	}
	return nil
}

// Validator runs the separation, field, and cross-field checks.
type Validator struct {
	config          Config
	logger          *slog.Logger
	extraCorporate  map[string]bool
	extraBusinessAt map[string]bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Validator.
func New(cfg Config, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	v := &Validator{
		config:          cfg,
		logger:          slog.Default(),
		extraCorporate:  tokenSet(cfg.ExtraCorporateMarkers),
		extraBusinessAt: tokenSet(cfg.ExtraBusinessTokens),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func tokenSet(tokens []string) map[string]bool {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

// corporateMarker checks a name against the built-in lexicon plus any
// configured extensions.
func (v *Validator) corporateMarker(name string) (string, bool) {
	if tok, ok := record.CorporateMarker(name); ok {
		return tok, true
	}
	if len(v.extraCorporate) == 0 {
		return "", false
	}
	for _, tok := range strings.Fields(name) {
		if v.extraCorporate[strings.ToLower(strings.Trim(tok, ".,;:()#\"'"))] {
			return tok, true
		}
	}
	return "", false
}

// businessMarker checks an address line against the built-in lexicon
// plus any configured extensions.
func (v *Validator) businessMarker(line string) (string, bool) {
	if tok, ok := record.BusinessAddressMarker(line); ok {
		return tok, true
	}
	if len(v.extraBusinessAt) == 0 {
		return "", false
	}
	for _, tok := range strings.Fields(line) {
		if v.extraBusinessAt[strings.ToLower(strings.Trim(tok, ".,;:()#\"'"))] {
			return tok, true
		}
	}
	return "", false
}
