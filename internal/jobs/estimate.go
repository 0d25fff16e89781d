package jobs

import "math"

// EstimatePerOrder returns the expected shipping cost of one order: the average rounded up,
// scaled by the safety margin and rounded up again. Amounts are rounded to paise before
// the final ceiling so 100 * 1.1 stays 110.
func EstimatePerOrder(avg, margin float64) float64 {
	return math.Ceil(roundCents(math.Ceil(avg) * (1 + margin)))
}

// Shortfall is the whole-rupee amount needed to cover the estimate.
func Shortfall(estimate, balance float64) float64 {
	if balance >= estimate {
		return 0
	}
	return math.Ceil(roundCents(estimate - balance))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
