package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

func TestMatch(t *testing.T) {
	p := profileOf(domain.BusinessRestaurant, 45, 150, domain.FlagAlcoholService)
	p.KitchenFeatures = map[string]bool{domain.FlagGasUsage: true}

	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"empty", domain.Condition{}, true},
		{"business type match", domain.Condition{BusinessType: domain.BusinessRestaurant}, true},
		{"business type mismatch", domain.Condition{BusinessType: domain.BusinessCafe}, false},
		{"seats in range", domain.Condition{SeatingCapacity: &domain.Range{Min: floatPtr(10), Max: floatPtr(50)}}, true},
		{"seats min inclusive", domain.Condition{SeatingCapacity: &domain.Range{Min: floatPtr(45)}}, true},
		{"seats max inclusive", domain.Condition{SeatingCapacity: &domain.Range{Max: floatPtr(45)}}, true},
		{"seats below min", domain.Condition{SeatingCapacity: &domain.Range{Min: floatPtr(46)}}, false},
		{"area above max", domain.Condition{FloorArea: &domain.Range{Max: floatPtr(149.9)}}, false},
		{"area open range", domain.Condition{FloorArea: &domain.Range{}}, true},
		{"service present", domain.Condition{HasService: domain.FlagList{domain.FlagAlcoholService}}, true},
		{"kitchen flag via hasService", domain.Condition{HasService: domain.FlagList{domain.FlagGasUsage}}, true},
		{"all services required", domain.Condition{HasService: domain.FlagList{domain.FlagAlcoholService, domain.FlagLiveMusic}}, false},
		{"required services", domain.Condition{RequiredServices: domain.FlagList{domain.FlagGasUsage}}, true},
		{"required services missing", domain.Condition{RequiredServices: domain.FlagList{domain.FlagMeatHandling}}, false},
		{"empty flag list is absent", domain.Condition{HasService: domain.FlagList{}}, true},
		{"unknown flag", domain.Condition{HasService: domain.FlagList{"helipad"}}, false},
		{"applicable types", domain.Condition{ApplicableBusinessTypes: []domain.BusinessType{domain.BusinessCafe, domain.BusinessRestaurant}}, true},
		{"applicable types exclude", domain.Condition{ApplicableBusinessTypes: []domain.BusinessType{domain.BusinessCafe}}, false},
		{"clauses are anded", domain.Condition{
			BusinessType: domain.BusinessRestaurant,
			FloorArea:    &domain.Range{Min: floatPtr(100)},
			HasService:   domain.FlagList{domain.FlagLiveMusic},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.cond, p))
		})
	}
}

func TestMatchFalseFlagIsAbsent(t *testing.T) {
	p := profileOf(domain.BusinessCafe, 10, 30)
	p.Services[domain.FlagLiveMusic] = false
	assert.False(t, Match(domain.Condition{HasService: domain.FlagList{domain.FlagLiveMusic}}, p))
}

func TestApplies(t *testing.T) {
	p := profileOf(domain.BusinessCafe, 12, 40)

	t.Run("no restrictions", func(t *testing.T) {
		assert.True(t, Applies(&domain.RequirementRecord{ID: "A"}, p))
	})

	t.Run("own conditions", func(t *testing.T) {
		rec := &domain.RequirementRecord{ID: "A", Conditions: &domain.Condition{FloorArea: &domain.Range{Min: floatPtr(50)}}}
		assert.False(t, Applies(rec, p))
	})

	t.Run("business type restriction", func(t *testing.T) {
		rec := &domain.RequirementRecord{ID: "A", ApplicableBusinessTypes: []domain.BusinessType{domain.BusinessFoodTruck}}
		assert.False(t, Applies(rec, p))

		rec.ApplicableBusinessTypes = append(rec.ApplicableBusinessTypes, domain.BusinessCafe)
		assert.True(t, Applies(rec, p))
	})
}
