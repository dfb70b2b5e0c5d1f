// Package report turns a match result into a narrative licensing report.
package report

import (
	"context"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Generator produces a narrative report for a match result. Implementations
// may perform network I/O and must honor ctx.
type Generator interface {
	Generate(ctx context.Context, result *domain.MatchResult, profile domain.BusinessProfile) (*domain.Report, error)
}

var sectionTitles = map[domain.Category]string{
	domain.CategoryGeneral: "רישוי כללי ורשות מקומית",
	domain.CategoryPolice:  "משטרת ישראל",
	domain.CategoryHealth:  "משרד הבריאות",
	domain.CategoryFire:    "כבאות והצלה",
}

var businessTypeNames = map[domain.BusinessType]string{
	domain.BusinessRestaurant:      "מסעדה",
	domain.BusinessCafe:            "בית קפה",
	domain.BusinessFastFood:        "מזון מהיר",
	domain.BusinessDeliveryOnly:    "משלוחים בלבד",
	domain.BusinessCatering:        "קייטרינג",
	domain.BusinessFoodTruck:       "משאית מזון",
	domain.BusinessBarPub:          "בר / פאב",
	domain.BusinessHotelRestaurant: "מסעדת מלון",
}

// SectionTitle returns the display title of an authority group.
func SectionTitle(c domain.Category) string {
	return sectionTitles[c.Normalize()]
}

func businessTypeName(t domain.BusinessType) string {
	if name, ok := businessTypeNames[t]; ok {
		return name
	}
	return string(t)
}
