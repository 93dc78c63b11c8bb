package games

import "math"

// MultiplierPrecision is the fixed number of decimal places carried by payout
// multipliers. Currency amounts are integer minor units throughout.
const MultiplierPrecision = 4

// truncate floors v at the given number of decimal places. Truncation, never
// rounding, so the house is never short-paid by a rounded-up multiplier.
func truncate(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Floor(v*scale) / scale
}

// ChanceMultiplier is the single shared payout law: a bet with winChance
// percent probability pays (100 - houseEdge*100) / winChance, truncated, so
// the expected value of every formula-driven bet is 1 - houseEdge.
func ChanceMultiplier(houseEdge, winChance float64) float64 {
	if winChance <= 0 || winChance >= 100 {
		return 0
	}
	return truncate((100-houseEdge*100)/winChance, MultiplierPrecision)
}

// Payout converts a stake in minor units through a multiplier, truncating the
// result to whole minor units.
func Payout(stake int64, multiplier float64) int64 {
	return int64(math.Floor(float64(stake) * multiplier))
}

// Profit is the payout net of the stake already debited.
func Profit(stake, payout int64) int64 {
	return payout - stake
}
