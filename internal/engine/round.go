package engine

import "github.com/shopspring/decimal"

// roundTo rounds v to the given number of decimal places, half away from
// zero, in decimal arithmetic so 0.1-coin prices do not pick up binary noise.
func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
