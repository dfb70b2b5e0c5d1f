package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Category is the authority group a requirement is filed under.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryPolice  Category = "police"
	CategoryHealth  Category = "health"
	CategoryFire    Category = "fire"
)

// Categories returns the four authority groups in presentation order.
func Categories() []Category {
	return []Category{CategoryGeneral, CategoryPolice, CategoryHealth, CategoryFire}
}

// Normalize maps unknown or empty categories to general.
func (c Category) Normalize() Category {
	switch c {
	case CategoryGeneral, CategoryPolice, CategoryHealth, CategoryFire:
		return c
	default:
		return CategoryGeneral
	}
}

// RequirementRecord is one regulatory requirement from the catalog.
// Records are shared by every request and must be treated as read-only.
type RequirementRecord struct {
	ID                      string         `json:"requirementId" yaml:"requirementId"`
	Title                   string         `json:"title" yaml:"title"`
	Description             string         `json:"description" yaml:"description"`
	Authority               string         `json:"authority" yaml:"authority"`
	Category                Category       `json:"category" yaml:"category"`
	Mandatory               bool           `json:"mandatory" yaml:"mandatory"`
	ApplicableBusinessTypes []BusinessType `json:"applicableBusinessTypes,omitempty" yaml:"applicableBusinessTypes,omitempty"`
	Conditions              *Condition     `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Informational only; never consulted by matching.
	EstimatedDays int    `json:"estimatedDays,omitempty" yaml:"estimatedDays,omitempty"`
	Fee           string `json:"fee,omitempty" yaml:"fee,omitempty"`
}

// Clone returns a deep copy that shares no slices or pointers with r.
func (r RequirementRecord) Clone() RequirementRecord {
	out := r
	out.ApplicableBusinessTypes = cloneTypes(r.ApplicableBusinessTypes)
	if r.Conditions != nil {
		cond := r.Conditions.Clone()
		out.Conditions = &cond
	}
	return out
}

// MappingRule associates a profile condition with a list of requirement ids.
type MappingRule struct {
	ID                     string    `json:"ruleId" yaml:"ruleId"`
	Description            string    `json:"description,omitempty" yaml:"description,omitempty"`
	Condition              Condition `json:"condition" yaml:"condition"`
	ApplicableRequirements []string  `json:"applicableRequirements" yaml:"applicableRequirements"`
}

// Clone returns a deep copy of the rule.
func (r MappingRule) Clone() MappingRule {
	out := r
	out.Condition = r.Condition.Clone()
	out.ApplicableRequirements = append([]string(nil), r.ApplicableRequirements...)
	return out
}

// Range is an inclusive numeric bound. A nil side is unconstrained.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains reports whether v lies within the inclusive bounds.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Clone returns a copy with its own bounds.
func (r *Range) Clone() *Range {
	if r == nil {
		return nil
	}
	out := Range{}
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	return &out
}

// Condition is a set of optional clauses. Every clause that is present must
// hold; a condition with no clauses always holds.
type Condition struct {
	BusinessType            BusinessType   `json:"businessType,omitempty" yaml:"businessType,omitempty"`
	SeatingCapacity         *Range         `json:"seatingCapacity,omitempty" yaml:"seatingCapacity,omitempty"`
	FloorArea               *Range         `json:"floorArea,omitempty" yaml:"floorArea,omitempty"`
	HasService              FlagList       `json:"hasService,omitempty" yaml:"hasService,omitempty"`
	RequiredServices        FlagList       `json:"requiredServices,omitempty" yaml:"requiredServices,omitempty"`
	ApplicableBusinessTypes []BusinessType `json:"applicableBusinessTypes,omitempty" yaml:"applicableBusinessTypes,omitempty"`
}

// IsEmpty reports whether no clause is present.
func (c Condition) IsEmpty() bool {
	return c.BusinessType == "" &&
		c.SeatingCapacity == nil &&
		c.FloorArea == nil &&
		len(c.HasService) == 0 &&
		len(c.RequiredServices) == 0 &&
		len(c.ApplicableBusinessTypes) == 0
}

// Clone returns a deep copy of the condition.
func (c Condition) Clone() Condition {
	out := c
	out.SeatingCapacity = c.SeatingCapacity.Clone()
	out.FloorArea = c.FloorArea.Clone()
	out.HasService = append(FlagList(nil), c.HasService...)
	out.RequiredServices = append(FlagList(nil), c.RequiredServices...)
	out.ApplicableBusinessTypes = cloneTypes(c.ApplicableBusinessTypes)
	return out
}

func cloneTypes(in []BusinessType) []BusinessType {
	if in == nil {
		return nil
	}
	return append([]BusinessType(nil), in...)
}

// FlagList is a list of capability flag names. Catalog documents may give a
// single name as a plain string.
type FlagList []string

func (f *FlagList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*f = nil
		} else {
			*f = FlagList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("flag list must be a string or an array of strings: %w", err)
	}
	*f = many
	return nil
}

func (f *FlagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*f = nil
			return nil
		}
		*f = FlagList{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*f = many
		return nil
	default:
		return fmt.Errorf("line %d: flag list must be a string or a sequence", node.Line)
	}
}
