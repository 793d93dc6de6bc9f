// Package pricing prices European options and inverts prices to implied volatility.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"EtfVolatility/internal/model"
)

// Intrinsic returns the exercise value of the option at spot s.
func Intrinsic(s, k float64, typ model.OptionType) float64 {
	if typ == model.Put {
		return math.Max(k-s, 0)
	}
	return math.Max(s-k, 0)
}

// Price is the Black-Scholes value of a European option.
// t is in years, r and sigma annualized. For t <= 0 it returns intrinsic value.
// sigma must be positive.
func Price(s, k, t, r, sigma float64, typ model.OptionType) float64 {
	if t <= 0 {
		return Intrinsic(s, k, typ)
	}
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	df := math.Exp(-r * t)

	n := distuv.UnitNormal
	if typ == model.Put {
		return k*df*n.CDF(-d2) - s*n.CDF(-d1)
	}
	return s*n.CDF(d1) - k*df*n.CDF(d2)
}
