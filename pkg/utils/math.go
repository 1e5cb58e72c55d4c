package utils

import "math"

// ImpliedProbability converts an American odds quote into the probability
// implied by that price, ignoring any bookmaker margin.
func ImpliedProbability(americanOdds int) float64 {
	if americanOdds > 0 {
		return 100.0 / (float64(americanOdds) + 100.0)
	}
	return float64(-americanOdds) / (float64(-americanOdds) + 100.0)
}

// Overround is the amount by which a two-outcome market's implied
// probabilities exceed 1.0 — the reference book's margin. A healthy
// sharp market sits a few points above zero; a negative or wildly large
// value usually means the feed handed us stale or malformed odds.
func Overround(oddsA, oddsB int) float64 {
	return ImpliedProbability(oddsA) + ImpliedProbability(oddsB) - 1.0
}

// RoundMoney rounds a monetary amount to cents, half away from zero.
func RoundMoney(value float64) float64 {
	if value >= 0 {
		return math.Floor(value*100+0.5) / 100
	}
	return math.Ceil(value*100-0.5) / 100
}
