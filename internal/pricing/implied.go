package pricing

import (
	"math"

	"EtfVolatility/internal/model"
)

// Search domain and iteration cap for the implied volatility root finder.
const (
	MinVol        = 0.01
	MaxVol        = 5.0
	MaxIterations = 100
)

const (
	xtol = 2e-12
	rtol = 4 * 2.220446049250313e-16
)

// ImpliedVolatility finds sigma in [MinVol, MaxVol] such that Price equals
// marketPrice. ok is false when t <= 0, when the price carries no time value,
// or when the root cannot be bracketed or does not converge.
func ImpliedVolatility(marketPrice, s, k, t, r float64, typ model.OptionType) (sigma float64, ok bool) {
	if t <= 0 {
		return 0, false
	}
	if marketPrice <= Intrinsic(s, k, typ) {
		return 0, false
	}
	f := func(v float64) float64 {
		return Price(s, k, t, r, v, typ) - marketPrice
	}
	return Brent(f, MinVol, MaxVol, MaxIterations)
}

// Brent locates a zero of f in [a, b] using Brent's method. f(a) and f(b)
// must have opposite signs. ok is false when the interval does not bracket a
// root, f is not finite at the ends, or maxIter is exhausted.
func Brent(f func(float64) float64, a, b float64, maxIter int) (root float64, ok bool) {
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) || math.IsInf(fa, 0) || math.IsInf(fb, 0) {
		return 0, false
	}
	if fa == 0 {
		return a, true
	}
	if fb == 0 {
		return b, true
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return 0, false
	}

	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < maxIter; i++ {
		if math.Signbit(fb) == math.Signbit(fc) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := xtol + rtol*math.Abs(b)
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, true
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			sr := fb / fa
			if a == c {
				// secant
				p = 2 * m * sr
				q = 1 - sr
			} else {
				// inverse quadratic interpolation
				qr := fa / fc
				rr := fb / fc
				p = sr * (2*m*qr*(qr-rr) - (b-a)*(rr-1))
				q = (qr - 1) * (rr - 1) * (sr - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return 0, false
		}
	}
	return 0, false
}
