// Package catalog holds the immutable requirement catalog consulted by the
// matching engine.
package catalog

import (
	"fmt"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Catalog is an immutable collection of requirement records and mapping
// rules. It is safe for concurrent use; nothing mutates it after New returns.
type Catalog struct {
	records []*domain.RequirementRecord
	index   map[string]*domain.RequirementRecord
	rules   []*domain.MappingRule
}

// New builds a catalog from records and rules, in the order given.
// Inputs are deep-copied. Duplicate requirement or rule ids are rejected.
func New(records []domain.RequirementRecord, rules []domain.MappingRule) (*Catalog, error) {
	c := &Catalog{
		records: make([]*domain.RequirementRecord, 0, len(records)),
		index:   make(map[string]*domain.RequirementRecord, len(records)),
		rules:   make([]*domain.MappingRule, 0, len(rules)),
	}

	for i := range records {
		rec := records[i].Clone()
		if rec.ID == "" {
			return nil, fmt.Errorf("requirement at position %d: missing requirementId", i)
		}
		if _, dup := c.index[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate requirementId %q", rec.ID)
		}
		rec.Category = rec.Category.Normalize()
		c.records = append(c.records, &rec)
		c.index[rec.ID] = &rec
	}

	seen := make(map[string]struct{}, len(rules))
	for i := range rules {
		rule := rules[i].Clone()
		if rule.ID == "" {
			return nil, fmt.Errorf("mapping rule at position %d: missing ruleId", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("duplicate ruleId %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}
		c.rules = append(c.rules, &rule)
	}

	return c, nil
}

// Requirement returns the record with the given id.
// The returned record is shared and must not be modified.
func (c *Catalog) Requirement(id string) (*domain.RequirementRecord, bool) {
	rec, ok := c.index[id]
	return rec, ok
}

// Requirements returns every record in catalog order.
// The slice is fresh; the records it points to are shared.
func (c *Catalog) Requirements() []*domain.RequirementRecord {
	out := make([]*domain.RequirementRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Rules returns every mapping rule in catalog order.
func (c *Catalog) Rules() []*domain.MappingRule {
	out := make([]*domain.MappingRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// RequirementsCount returns the number of requirement records.
func (c *Catalog) RequirementsCount() int { return len(c.records) }

// RulesCount returns the number of mapping rules.
func (c *Catalog) RulesCount() int { return len(c.rules) }
