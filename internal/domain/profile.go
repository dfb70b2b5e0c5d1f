package domain

import (
	"math"
	"sort"
)

// BusinessType is the closed set of food-service business kinds.
type BusinessType string

const (
	BusinessRestaurant      BusinessType = "restaurant"
	BusinessCafe            BusinessType = "cafe"
	BusinessFastFood        BusinessType = "fast_food"
	BusinessDeliveryOnly    BusinessType = "delivery_only"
	BusinessCatering        BusinessType = "catering"
	BusinessFoodTruck       BusinessType = "food_truck"
	BusinessBarPub          BusinessType = "bar_pub"
	BusinessHotelRestaurant BusinessType = "hotel_restaurant"
)

var businessTypes = []BusinessType{
	BusinessRestaurant,
	BusinessCafe,
	BusinessFastFood,
	BusinessDeliveryOnly,
	BusinessCatering,
	BusinessFoodTruck,
	BusinessBarPub,
	BusinessHotelRestaurant,
}

// BusinessTypes returns every accepted business type in declaration order.
func BusinessTypes() []BusinessType {
	out := make([]BusinessType, len(businessTypes))
	copy(out, businessTypes)
	return out
}

// Valid reports whether t belongs to the closed set.
func (t BusinessType) Valid() bool {
	for _, bt := range businessTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Capability flag names, grouped by the namespace they are reported in.
const (
	FlagAlcoholService  = "alcoholService"
	FlagDeliveryService = "deliveryService"
	FlagLiveMusic       = "liveMusic"
	FlagOutdoorSeating  = "outdoorSeating"
	FlagTakeaway        = "takeaway"

	FlagGasUsage      = "gasUsage"
	FlagMeatHandling  = "meatHandling"
	FlagDairyProducts = "dairyProducts"
	FlagSmokingArea   = "smokingArea"

	FlagLateNightOperation = "lateNightOperation"
	FlagTwentyFourSeven    = "twentyFourSeven"
)

// KnownFlags lists every capability flag the catalog and advisor know about.
func KnownFlags() []string {
	return []string{
		FlagAlcoholService, FlagDeliveryService, FlagLiveMusic, FlagOutdoorSeating, FlagTakeaway,
		FlagGasUsage, FlagMeatHandling, FlagDairyProducts, FlagSmokingArea,
		FlagLateNightOperation, FlagTwentyFourSeven,
	}
}

// BusinessProfile is the self-reported description of a business.
// SeatingCapacity and FloorArea are pointers so that an absent field can be
// told apart from a zero value.
type BusinessProfile struct {
	BusinessType     BusinessType    `json:"businessType"`
	SeatingCapacity  *int            `json:"seatingCapacity"`
	FloorArea        *float64        `json:"floorArea"`
	Services         map[string]bool `json:"services,omitempty"`
	KitchenFeatures  map[string]bool `json:"kitchenFeatures,omitempty"`
	OperationalHours map[string]bool `json:"operationalHours,omitempty"`
}

// Validate checks the profile invariants and returns a *ValidationError
// naming the first offending field.
func (p BusinessProfile) Validate() error {
	if p.BusinessType == "" {
		return NewValidationError("businessType", "is required")
	}
	if !p.BusinessType.Valid() {
		return NewValidationError("businessType", "unknown business type "+string(p.BusinessType))
	}
	if p.SeatingCapacity == nil {
		return NewValidationError("seatingCapacity", "is required")
	}
	if *p.SeatingCapacity < 0 {
		return NewValidationError("seatingCapacity", "must be zero or greater")
	}
	if p.FloorArea == nil {
		return NewValidationError("floorArea", "is required")
	}
	if math.IsNaN(*p.FloorArea) || math.IsInf(*p.FloorArea, 0) {
		return NewValidationError("floorArea", "must be a finite number")
	}
	if *p.FloorArea <= 0 {
		return NewValidationError("floorArea", "must be greater than zero")
	}
	return nil
}

// Seats returns the seating capacity, or zero when it is absent.
func (p BusinessProfile) Seats() int {
	if p.SeatingCapacity == nil {
		return 0
	}
	return *p.SeatingCapacity
}

// Area returns the floor area, or zero when it is absent.
func (p BusinessProfile) Area() float64 {
	if p.FloorArea == nil {
		return 0
	}
	return *p.FloorArea
}

// HasCapability looks a flag up across services, kitchen features and
// operational hours. Flags absent from every namespace are false.
func (p BusinessProfile) HasCapability(name string) bool {
	return p.Services[name] || p.KitchenFeatures[name] || p.OperationalHours[name]
}

// Capabilities merges the three flag namespaces into one map.
func (p BusinessProfile) Capabilities() map[string]bool {
	merged := make(map[string]bool, len(p.Services)+len(p.KitchenFeatures)+len(p.OperationalHours))
	for _, ns := range []map[string]bool{p.Services, p.KitchenFeatures, p.OperationalHours} {
		for k, v := range ns {
			merged[k] = merged[k] || v
		}
	}
	return merged
}

// EnabledCapabilities returns the names of all true flags, sorted.
func (p BusinessProfile) EnabledCapabilities() []string {
	var names []string
	for name, on := range p.Capabilities() {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Sanitized returns a deep copy safe to echo back to callers. Nil flag maps
// become empty maps.
func (p BusinessProfile) Sanitized() BusinessProfile {
	out := BusinessProfile{
		BusinessType:     p.BusinessType,
		Services:         cloneFlags(p.Services),
		KitchenFeatures:  cloneFlags(p.KitchenFeatures),
		OperationalHours: cloneFlags(p.OperationalHours),
	}
	if p.SeatingCapacity != nil {
		seats := *p.SeatingCapacity
		out.SeatingCapacity = &seats
	}
	if p.FloorArea != nil {
		area := *p.FloorArea
		out.FloorArea = &area
	}
	return out
}

func cloneFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
