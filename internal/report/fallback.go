package report

import (
	"fmt"
	"strings"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

var costBands = map[string]string{
	domain.ComplexityLow:    "₪2,000-5,000",
	domain.ComplexityMedium: "₪5,000-15,000",
	domain.ComplexityHigh:   "₪15,000-40,000",
}

// CostBand returns the estimated total cost range for a complexity tier.
func CostBand(complexity string) string {
	if band, ok := costBands[complexity]; ok {
		return band
	}
	return costBands[domain.ComplexityHigh]
}

// Fallback formats result into a report without any external service.
// The returned report has no ID; GeneratedAt is the result's ProcessedAt.
func Fallback(result *domain.MatchResult) *domain.Report {
	s := result.Summary

	rep := &domain.Report{
		Title: fmt.Sprintf("דוח דרישות רישוי עסק - %s", businessTypeName(result.BusinessProfile.BusinessType)),
		Summary: fmt.Sprintf("נמצאו %d דרישות רישוי, מתוכן %d דרישות חובה ו-%d דרישות רשות. רמת מורכבות: %s. זמן טיפול משוער: %s.",
			s.TotalRequirements, s.MandatoryRequirements, s.OptionalRequirements, s.ComplexityLevel, s.EstimatedProcessingTime),
		Sections:           []domain.ReportSection{},
		TotalEstimatedCost: CostBand(s.ComplexityLevel),
		EstimatedTimeframe: s.EstimatedProcessingTime,
		Source:             domain.ReportSourceFallback,
		GeneratedAt:        result.ProcessedAt,
	}

	for _, c := range domain.Categories() {
		rows := result.Requirements[c]
		if len(rows) == 0 {
			continue
		}
		rep.Sections = append(rep.Sections, section(c, rows))
	}

	rep.Recommendations = recommendations(result)
	return rep
}

func section(c domain.Category, rows []domain.MatchedRequirement) domain.ReportSection {
	priority := domain.PriorityMedium
	var b strings.Builder
	for i, row := range rows {
		if row.Mandatory {
			priority = domain.PriorityHigh
		}
		if i > 0 {
			b.WriteString("\n")
		}
		kind := "רשות"
		if row.Mandatory {
			kind = "חובה"
		}
		fmt.Fprintf(&b, "• %s (%s) - %s", row.Title, kind, row.Authority)
		if row.Description != "" {
			fmt.Fprintf(&b, ": %s", row.Description)
		}
	}
	return domain.ReportSection{
		Title:    SectionTitle(c),
		Content:  b.String(),
		Priority: priority,
	}
}

func recommendations(result *domain.MatchResult) []string {
	s := result.Summary
	out := []string{}

	if s.MandatoryRequirements > 0 {
		out = append(out, fmt.Sprintf("יש להשלים %d דרישות חובה לפני פתיחת העסק", s.MandatoryRequirements))
	}

	switch s.ComplexityLevel {
	case domain.ComplexityHigh:
		out = append(out, "רמת המורכבות גבוהה: מומלץ להיעזר ביועץ רישוי עסקים")
	case domain.ComplexityMedium:
		out = append(out, "מומלץ להכין לוח זמנים מסודר לטיפול בכל דרישה")
	default:
		out = append(out, "ניתן לטפל ברוב הדרישות באופן עצמאי")
	}

	var largest domain.Category
	most := 0
	for _, c := range domain.Categories() {
		if n := len(result.Requirements[c]); n > most {
			largest, most = c, n
		}
	}
	if most > 0 {
		out = append(out, fmt.Sprintf("רוב הדרישות הן מול %s (%d דרישות): מומלץ להתחיל בהן", SectionTitle(largest), most))
	}
	return out
}
