package rules

import "github.com/opensource-regtech/kestrel/internal/domain"

// Match reports whether every clause present in cond holds for profile.
// A condition with no clauses always matches.
func Match(cond domain.Condition, profile domain.BusinessProfile) bool {
	if cond.BusinessType != "" && cond.BusinessType != profile.BusinessType {
		return false
	}
	if cond.SeatingCapacity != nil && !cond.SeatingCapacity.Contains(float64(profile.Seats())) {
		return false
	}
	if cond.FloorArea != nil && !cond.FloorArea.Contains(profile.Area()) {
		return false
	}
	if !hasAll(profile, cond.HasService) || !hasAll(profile, cond.RequiredServices) {
		return false
	}
	if len(cond.ApplicableBusinessTypes) > 0 && !containsType(cond.ApplicableBusinessTypes, profile.BusinessType) {
		return false
	}
	return true
}

// Applies reports whether a requirement survives the requirement-level
// filter: its own conditions and its business type restriction.
func Applies(rec *domain.RequirementRecord, profile domain.BusinessProfile) bool {
	if rec.Conditions != nil && !Match(*rec.Conditions, profile) {
		return false
	}
	if len(rec.ApplicableBusinessTypes) > 0 && !containsType(rec.ApplicableBusinessTypes, profile.BusinessType) {
		return false
	}
	return true
}

func hasAll(profile domain.BusinessProfile, flags domain.FlagList) bool {
	for _, name := range flags {
		if !profile.HasCapability(name) {
			return false
		}
	}
	return true
}

func containsType(types []domain.BusinessType, t domain.BusinessType) bool {
	for _, bt := range types {
		if bt == t {
			return true
		}
	}
	return false
}
