package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"EtfVolatility/internal/model"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// Canonical HV windows in trading days.
const (
	HVShort  = 20
	HVMedium = 60
	HVLong   = 252
)

// LogReturns returns ln(close[t]/close[t-1]). Index 0, and any step touching a
// non-positive close, is NaN.
func LogReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		if closes[i] <= 0 || closes[i-1] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// HistoricalVolatility computes the annualized sample standard deviation of
// the trailing window log returns at every position, as a percentage.
// Positions without window defined returns are undefined. O(n*window).
func HistoricalVolatility(closes []float64, window int) []model.Float {
	out := make([]model.Float, len(closes))
	if window < 2 {
		return out
	}
	returns := LogReturns(closes)
	scale := math.Sqrt(TradingDaysPerYear) * 100

	for t := window; t < len(returns); t++ {
		w := returns[t-window+1 : t+1]
		if hasNaN(w) {
			continue
		}
		out[t] = model.Some(stat.StdDev(w, nil) * scale)
	}
	return out
}

// BuildHVSeries recomputes HV20/HV60/HV252 over the full price history.
// prices must be ascending by date.
func BuildHVSeries(prices []model.PricePoint) []model.HVRecord {
	closes := extractCloses(prices)
	hv20 := HistoricalVolatility(closes, HVShort)
	hv60 := HistoricalVolatility(closes, HVMedium)
	hv252 := HistoricalVolatility(closes, HVLong)

	out := make([]model.HVRecord, len(prices))
	for i, p := range prices {
		out[i] = model.HVRecord{
			Date:  p.Date,
			Close: p.Close,
			HV20:  hv20[i],
			HV60:  hv60[i],
			HV252: hv252[i],
		}
	}
	return out
}

func extractCloses(prices []model.PricePoint) []float64 {
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	return closes
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
