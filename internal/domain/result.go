package domain

import "time"

// MatchedRequirement pairs a copy of a catalog record with per-result
// metadata.
type MatchedRequirement struct {
	*RequirementRecord
	MatchedByRule string `json:"matchedByRule"`
}

// MatchResult is the outcome of matching one profile against a catalog.
type MatchResult struct {
	BusinessProfile BusinessProfile                   `json:"businessProfile"`
	Requirements    map[Category][]MatchedRequirement `json:"requirements"`
	Summary         Summary                           `json:"summary"`
	ProcessedAt     time.Time                         `json:"processedAt"`
}

// All returns the matched rows flattened in category presentation order.
func (r *MatchResult) All() []MatchedRequirement {
	var out []MatchedRequirement
	for _, c := range Categories() {
		out = append(out, r.Requirements[c]...)
	}
	return out
}

// Complexity tiers.
const (
	ComplexityLow    = "Low"
	ComplexityMedium = "Medium"
	ComplexityHigh   = "High"
)

// Summary holds the derived statistics of a MatchResult.
type Summary struct {
	TotalRequirements       int              `json:"totalRequirements"`
	MandatoryRequirements   int              `json:"mandatoryRequirements"`
	OptionalRequirements    int              `json:"optionalRequirements"`
	AuthorityCounts         map[Category]int `json:"authorityCounts"`
	EstimatedProcessingTime string           `json:"estimatedProcessingTime"`
	ComplexityLevel         string           `json:"complexityLevel"`
}

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is a qualitative advisory note derived from a profile.
type Recommendation struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// DetailedRequirement is a catalog record enriched for display.
type DetailedRequirement struct {
	RequirementRecord
	RelatedRequirements []RequirementRecord `json:"relatedRequirements"`
	ProcessingTips      []string            `json:"processingTips"`
}
