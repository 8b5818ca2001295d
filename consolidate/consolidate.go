// Package consolidate merges duplicate entity mentions into single
// candidates. The same inventor often appears three ways on one cover
// sheet: in a labeled field, under a section heading, and again on a
// continuation page. Consolidation clusters mentions by weighted
// similarity and folds each cluster field by field, keeping the union
// of evidence references. Merging is idempotent and insensitive to
// input order.
package consolidate

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/coverlight/intake/record"
)

// Config controls consolidation.
type Config struct {
	// Threshold is the similarity score at or above which two mentions
	// merge. Weighted scores live in [0, 1].
	Threshold float64 `yaml:"threshold"`
}

// DefaultConfig returns the consolidation defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0.65}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}
	return nil
}

// Consolidator merges duplicate candidates.
type Consolidator struct {
	config Config
	logger *slog.Logger
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consolidator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Consolidator.
func New(cfg Config, opts ...Option) (*Consolidator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := &Consolidator{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Persons merges duplicate person candidates. Merging runs to a fixed
// point: a merged candidate gains fields from its members, which can
// reveal similarity a single mention did not show.
func (c *Consolidator) Persons(cands []record.PersonCandidate) []record.PersonCandidate {
	out := append([]record.PersonCandidate(nil), cands...)
	for {
		merged, changed := c.personsPass(out)
		out = merged
		if !changed {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return personOrder(out[i], out[j]) })
	if len(out) < len(cands) {
		c.logger.Info("consolidated persons", "mentions", len(cands), "entities", len(out))
	}
	return out
}

func (c *Consolidator) personsPass(cands []record.PersonCandidate) ([]record.PersonCandidate, bool) {
	if len(cands) < 2 {
		return cands, false
	}
	uf := newUnionFind(len(cands))
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if PersonSimilarity(cands[i], cands[j]) >= c.config.Threshold {
				uf.union(i, j)
			}
		}
	}
	clusters := uf.clusters()
	if len(clusters) == len(cands) {
		return cands, false
	}
	out := make([]record.PersonCandidate, 0, len(clusters))
	for _, idxs := range clusters {
		if len(idxs) == 1 {
			out = append(out, cands[idxs[0]])
			continue
		}
		members := make([]record.PersonCandidate, len(idxs))
		for k, idx := range idxs {
			members[k] = cands[idx]
		}
		m := mergePersons(members)
		c.logger.Debug("merged person mentions", "name", m.FullName(), "mentions", len(members))
		out = append(out, m)
	}
	return out, true
}

// Organizations merges duplicate organization candidates.
func (c *Consolidator) Organizations(cands []record.OrgCandidate) []record.OrgCandidate {
	out := append([]record.OrgCandidate(nil), cands...)
	for {
		merged, changed := c.orgsPass(out)
		out = merged
		if !changed {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return orgOrder(out[i], out[j]) })
	if len(out) < len(cands) {
		c.logger.Info("consolidated organizations", "mentions", len(cands), "entities", len(out))
	}
	return out
}

func (c *Consolidator) orgsPass(cands []record.OrgCandidate) ([]record.OrgCandidate, bool) {
	if len(cands) < 2 {
		return cands, false
	}
	uf := newUnionFind(len(cands))
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if OrgSimilarity(cands[i], cands[j]) >= c.config.Threshold {
				uf.union(i, j)
			}
		}
	}
	clusters := uf.clusters()
	if len(clusters) == len(cands) {
		return cands, false
	}
	out := make([]record.OrgCandidate, 0, len(clusters))
	for _, idxs := range clusters {
		if len(idxs) == 1 {
			out = append(out, cands[idxs[0]])
			continue
		}
		members := make([]record.OrgCandidate, len(idxs))
		for k, idx := range idxs {
			members[k] = cands[idx]
		}
		m := mergeOrgs(members)
		c.logger.Debug("merged organization mentions", "name", m.Name, "mentions", len(members))
		out = append(out, m)
	}
	return out, true
}

// Claims deduplicates priority claims: the same prior application cited
// twice with the same date is one claim with the union of its evidence.
func (c *Consolidator) Claims(claims []record.PriorityClaim) []record.PriorityClaim {
	groups := make(map[string][]record.PriorityClaim)
	var order []string
	for _, cl := range claims {
		key := claimKey(cl)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], cl)
	}

	out := make([]record.PriorityClaim, 0, len(order))
	for _, key := range order {
		group := groups[key]
		merged := group[0]
		for _, other := range group[1:] {
			// Prefer the fullest application number spelling and any
			// stated relation.
			if len(other.PriorAppID) > len(merged.PriorAppID) {
				merged.PriorAppID = other.PriorAppID
			}
			if merged.Relation == "" && other.Relation != "" {
				merged.Relation = other.Relation
			}
			if record.IsUnknown(merged.Country) && record.Known(other.Country) {
				merged.Country = other.Country
			}
		}
		lists := make([][]string, len(group))
		for i, g := range group {
			lists[i] = g.Evidence
		}
		merged.Evidence = unionEvidence(lists)
		out = append(out, merged)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilingDate != out[j].FilingDate {
			return out[i].FilingDate < out[j].FilingDate
		}
		if out[i].PriorAppID != out[j].PriorAppID {
			return out[i].PriorAppID < out[j].PriorAppID
		}
		return out[i].ID < out[j].ID
	})
	if len(out) < len(claims) {
		c.logger.Info("consolidated priority claims", "mentions", len(claims), "claims", len(out))
	}
	return out
}

// claimKey identifies a claim by kind, application number (digits and
// letters only), and date.
func claimKey(c record.PriorityClaim) string {
	return string(c.Kind) + "|" + nameKey(c.PriorAppID) + "|" + c.FilingDate
}

// personOrder fixes the output order: inventors first, then by name.
func personOrder(a, b record.PersonCandidate) bool {
	if roleRank(a.Role) != roleRank(b.Role) {
		return roleRank(a.Role) > roleRank(b.Role)
	}
	an, bn := nameKey(a.FullName()), nameKey(b.FullName())
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func orgOrder(a, b record.OrgCandidate) bool {
	if roleRank(a.Role) != roleRank(b.Role) {
		return roleRank(a.Role) > roleRank(b.Role)
	}
	an, bn := nameKey(a.Name), nameKey(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}
