package pricing

import "math"

// TaxOnNet returns the tax to add on top of a net amount.
func TaxOnNet(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}

// TaxInGross returns the tax share contained in a gross (tax-inclusive)
// amount: amount - amount/(1+rate), rounded per row so drift stays within
// one minor unit.
func TaxInGross(amount int64, rate float64) int64 {
	return amount - int64(math.Round(float64(amount)/(1+rate)))
}
