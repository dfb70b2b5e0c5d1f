package rules

import "github.com/opensource-regtech/kestrel/internal/domain"

// Summarize computes the derived statistics for grouped requirements.
func Summarize(groups map[domain.Category][]domain.MatchedRequirement) domain.Summary {
	s := domain.Summary{
		AuthorityCounts: make(map[domain.Category]int, 4),
	}
	for _, c := range domain.Categories() {
		s.AuthorityCounts[c] = 0
	}

	for cat, rows := range groups {
		s.AuthorityCounts[cat] += len(rows)
		for _, row := range rows {
			s.TotalRequirements++
			if row.Mandatory {
				s.MandatoryRequirements++
			}
		}
	}
	s.OptionalRequirements = s.TotalRequirements - s.MandatoryRequirements
	s.EstimatedProcessingTime = ProcessingTime(s.TotalRequirements)
	s.ComplexityLevel = Complexity(s.TotalRequirements, s.MandatoryRequirements)
	return s
}

// ProcessingTime maps a requirement count to a processing-time estimate.
func ProcessingTime(total int) string {
	switch {
	case total <= 3:
		return "1-2 weeks"
	case total <= 6:
		return "2-4 weeks"
	case total <= 10:
		return "4-8 weeks"
	default:
		return "8-12 weeks"
	}
}

// Complexity returns the complexity tier. Both thresholds of a tier must
// hold; failing either escalates to the next tier.
func Complexity(total, mandatory int) string {
	switch {
	case total <= 4 && mandatory <= 3:
		return domain.ComplexityLow
	case total <= 8 && mandatory <= 6:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityHigh
	}
}
