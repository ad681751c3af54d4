// Package economy implements the market mechanics of the model: realtor
// valuation, buyer search and offers, chain resolution and settlement, and
// the lending arithmetic they share.
package economy

import "math"

// Stamp duty bands: a purchase price strictly above the threshold pays the
// rate on the whole price.
var dutyBands = []struct {
	threshold float64
	rate      float64
}{
	{500000, 0.04},
	{250000, 0.02},
	{150000, 0.01},
}

// StampDuty returns the tax due on a purchase at cost.
func StampDuty(cost float64, enabled bool) float64 {
	if !enabled {
		return 0
	}
	for _, b := range dutyBands {
		if cost > b.threshold {
			return b.rate * cost
		}
	}
	return 0
}

// MaxMortgage is the largest loan an income supports at the given
// affordability (percent of income spent on interest) and per-tick rate.
func MaxMortgage(income, affordability, interestPerTick float64, ticksPerYear int) float64 {
	return income * affordability / (interestPerTick * float64(ticksPerYear) * 100)
}

// Repayment is the per-tick annuity that pays off principal over
// durationYears at interestPerTick.
func Repayment(principal, interestPerTick, durationYears float64, ticksPerYear int) float64 {
	n := durationYears * float64(ticksPerYear)
	if interestPerTick == 0 {
		return principal / n
	}
	return principal * interestPerTick / (1 - math.Pow(1+interestPerTick, -n))
}

// Amortize applies one tick of repayment to a mortgage and returns the new
// balance and repayment. A loan paid down to zero or below is closed.
func Amortize(mortgage, repayment, interestPerTick float64) (float64, float64) {
	mortgage -= repayment - interestPerTick*mortgage
	if mortgage <= 0 {
		return 0, 0
	}
	return mortgage, repayment
}
