package registry

// MissingBaseline is the previous-period value assumed when no prior reading
// was recorded. With a zero baseline the full cumulative value of a newly
// added meter is billed as one month's consumption.
const MissingBaseline = 0.0

// ConsumptionDelta is the consumption of one utility over a period.
// Fields other than Applicable are meaningful only when Applicable is true.
type ConsumptionDelta struct {
	Applicable    bool
	PreviousValue float64
	CurrentValue  float64
	RawDelta      float64
	AdjustedDelta float64
}

// Compute derives consumption from cumulative readings. Negative deltas are
// passed through unchanged.
func Compute(current, previous *float64, multiplier float64) ConsumptionDelta {
	if current == nil {
		return ConsumptionDelta{}
	}
	prev := MissingBaseline
	if previous != nil {
		prev = *previous
	}
	raw := *current - prev
	return ConsumptionDelta{
		Applicable:    true,
		PreviousValue: prev,
		CurrentValue:  *current,
		RawDelta:      raw,
		AdjustedDelta: raw * multiplier,
	}
}
