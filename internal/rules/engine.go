// Package rules implements the requirements matching engine.
package rules

import (
	"log/slog"
	"time"

	"github.com/opensource-regtech/kestrel/internal/catalog"
	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
)

// Engine matches business profiles against one immutable catalog.
// An Engine holds no per-request state and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for catalog gap warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the source of MatchResult.ProcessedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over cat.
func NewEngine(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindApplicableRequirements validates profile and returns every catalog
// requirement that applies to it, grouped by category.
//
// Rules are evaluated in catalog order. The first rule selecting a
// requirement id is recorded as its provenance and later selections of the
// same id are ignored. A rule that references an id missing from the catalog
// is logged and skipped.
func (e *Engine) FindApplicableRequirements(profile domain.BusinessProfile) (*domain.MatchResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	type candidate struct {
		rec    *domain.RequirementRecord
		ruleID string
	}

	seen := make(map[string]struct{})
	var candidates []candidate

	for _, rule := range e.catalog.Rules() {
		if !Match(rule.Condition, profile) {
			continue
		}
		for _, id := range rule.ApplicableRequirements {
			if _, dup := seen[id]; dup {
				continue
			}
			rec, ok := e.catalog.Requirement(id)
			if !ok {
				e.logger.Warn("mapping rule references unknown requirement",
					"rule_id", rule.ID,
					"requirement_id", id,
				)
				metrics.CatalogGaps.WithLabelValues(rule.ID).Inc()
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, candidate{rec: rec, ruleID: rule.ID})
		}
	}

	grouped := emptyGroups()
	for _, c := range candidates {
		if !Applies(c.rec, profile) {
			continue
		}
		cat := c.rec.Category.Normalize()
		rec := c.rec.Clone()
		grouped[cat] = append(grouped[cat], domain.MatchedRequirement{
			RequirementRecord: &rec,
			MatchedByRule:     c.ruleID,
		})
	}

	return &domain.MatchResult{
		BusinessProfile: profile.Sanitized(),
		Requirements:    grouped,
		Summary:         Summarize(grouped),
		ProcessedAt:     e.now().UTC(),
	}, nil
}

// GetAllRequirements returns a deep copy of every catalog record in catalog
// order.
func (e *Engine) GetAllRequirements() []domain.RequirementRecord {
	recs := e.catalog.Requirements()
	out := make([]domain.RequirementRecord, len(recs))
	for i, rec := range recs {
		out[i] = rec.Clone()
	}
	return out
}

// RulesCount returns the number of mapping rules in the catalog.
func (e *Engine) RulesCount() int {
	return e.catalog.RulesCount()
}

// RequirementsCount returns the number of requirement records in the catalog.
func (e *Engine) RequirementsCount() int {
	return e.catalog.RequirementsCount()
}

func emptyGroups() map[domain.Category][]domain.MatchedRequirement {
	groups := make(map[domain.Category][]domain.MatchedRequirement, 4)
	for _, c := range domain.Categories() {
		groups[c] = []domain.MatchedRequirement{}
	}
	return groups
}
