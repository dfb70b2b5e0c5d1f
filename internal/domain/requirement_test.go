package domain

import "testing"

func TestRequirementRecordClone(t *testing.T) {
	min, max := 10.0, 50.0
	rec := RequirementRecord{
		ID:                      "A",
		ApplicableBusinessTypes: []BusinessType{BusinessCafe},
		Conditions: &Condition{
			SeatingCapacity:         &Range{Min: &min, Max: &max},
			HasService:              FlagList{FlagAlcoholService},
			RequiredServices:        FlagList{FlagGasUsage},
			ApplicableBusinessTypes: []BusinessType{BusinessRestaurant},
		},
	}

	clone := rec.Clone()
	clone.ApplicableBusinessTypes[0] = BusinessBarPub
	clone.Conditions.HasService[0] = "changed"
	clone.Conditions.RequiredServices[0] = "changed"
	clone.Conditions.ApplicableBusinessTypes[0] = BusinessBarPub
	*clone.Conditions.SeatingCapacity.Min = 0

	if rec.ApplicableBusinessTypes[0] != BusinessCafe {
		t.Error("ApplicableBusinessTypes aliases the original")
	}
	if rec.Conditions.HasService[0] != FlagAlcoholService || rec.Conditions.RequiredServices[0] != FlagGasUsage {
		t.Error("flag lists alias the original")
	}
	if rec.Conditions.ApplicableBusinessTypes[0] != BusinessRestaurant {
		t.Error("condition business types alias the original")
	}
	if *rec.Conditions.SeatingCapacity.Min != 10 {
		t.Error("range bounds alias the original")
	}

	if (RequirementRecord{ID: "B"}).Clone().Conditions != nil {
		t.Error("expected nil conditions to stay nil")
	}
}

func TestMappingRuleClone(t *testing.T) {
	rule := MappingRule{
		ID:                     "R",
		Condition:              Condition{HasService: FlagList{FlagLiveMusic}},
		ApplicableRequirements: []string{"A", "B"},
	}

	clone := rule.Clone()
	clone.ApplicableRequirements[0] = "Z"
	clone.Condition.HasService[0] = "changed"

	if rule.ApplicableRequirements[0] != "A" || rule.Condition.HasService[0] != FlagLiveMusic {
		t.Errorf("clone aliases the original: %+v", rule)
	}
}
