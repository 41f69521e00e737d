package registry

// Utility enumerates the metered services that appear in a registry.
type Utility string

const (
	UtilityElectricity Utility = "electricity"
	UtilityWater       Utility = "water"
	UtilityWastewater  Utility = "wastewater"
	UtilityGas         Utility = "gas"
)

// Utilities lists the services in registry order.
var Utilities = []Utility{UtilityElectricity, UtilityWater, UtilityWastewater, UtilityGas}

// Subscriber is a billed account with its meter descriptors.
// Empty strings mean "no data" for the descriptor.
type Subscriber struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	ElectricityMeter    string  `json:"electricity_meter,omitempty"`
	TransformationRatio float64 `json:"transformation_ratio,omitempty"`
	WaterMeter          string  `json:"water_meter,omitempty"`
	Wastewater          string  `json:"wastewater,omitempty"`
	GasMeter            string  `json:"gas_meter,omitempty"`
}

// Ratio returns the electricity multiplier; an unset or zero ratio counts as 1.
func (s Subscriber) Ratio() float64 {
	if s.TransformationRatio == 0 {
		return 1
	}
	return s.TransformationRatio
}

// Reading holds cumulative meter values for one subscriber and month.
// A nil field means the value was not recorded.
type Reading struct {
	SubscriberID int64    `json:"subscriber_id"`
	Period       Period   `json:"period"`
	Electricity  *float64 `json:"electricity,omitempty"`
	Water        *float64 `json:"water,omitempty"`
	Wastewater   *float64 `json:"wastewater,omitempty"`
	Gas          *float64 `json:"gas,omitempty"`
}

// Value returns the recorded value for the utility.
func (r *Reading) Value(u Utility) *float64 {
	if r == nil {
		return nil
	}
	switch u {
	case UtilityElectricity:
		return r.Electricity
	case UtilityWater:
		return r.Water
	case UtilityWastewater:
		return r.Wastewater
	case UtilityGas:
		return r.Gas
	default:
		return nil
	}
}

// Float is a helper for building optional readings.
func Float(v float64) *float64 {
	return &v
}
