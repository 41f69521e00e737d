package registry

import "github.com/shopspring/decimal"

// exactFloatExp is below the smallest float64 exponent, so conversion keeps
// the exact binary value instead of its shortest decimal form.
const exactFloatExp = -1100

// FormatQuantity renders a meter value or consumption with one decimal place.
// Ties are broken to even on the exact binary value: 20.25 gives "20.2" and
// 0.15, stored as 0.1499..., gives "0.1".
func FormatQuantity(v float64) string {
	return decimal.NewFromFloatWithExponent(v, exactFloatExp).RoundBank(1).StringFixed(1)
}

// FormatRatio renders a transformation ratio without trailing zeros.
func FormatRatio(v float64) string {
	return decimal.NewFromFloat(v).String()
}
