// Package vix builds a synthetic 30-day volatility index from near-the-money calls.
package vix

import (
	"sort"
	"time"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/pricing"
)

// Selection policy. Changing any of these shifts the index materially.
const (
	MinDaysToExpiry = 20
	MaxDaysToExpiry = 40
	MaxContracts    = 5
	MinIV           = 0.01
	MaxIV           = 3.0
	DaysPerYear     = 365.0

	DefaultRiskFreeRate = 0.03
)

// Candidate is a contract chosen for a day's index along with its inputs.
type Candidate struct {
	Quote     model.OptionQuote
	Moneyness float64
	IV        model.Float
}

// Aggregator computes daily index values. It is stateless and safe for concurrent use.
type Aggregator struct {
	RiskFreeRate float64
}

// NewAggregator creates an Aggregator with the given annualized risk-free rate.
func NewAggregator(riskFreeRate float64) *Aggregator {
	return &Aggregator{RiskFreeRate: riskFreeRate}
}

// Select filters a day's quotes to calls with 20-40 days to expiry and keeps
// the MaxContracts closest to the money. Ties keep provider order.
func (a *Aggregator) Select(quotes []model.OptionQuote, underlying float64) []Candidate {
	if underlying <= 0 {
		return nil
	}
	var out []Candidate
	for _, q := range quotes {
		if q.DaysToExpiry < MinDaysToExpiry || q.DaysToExpiry > MaxDaysToExpiry {
			continue
		}
		if q.Type != model.Call {
			continue
		}
		m := (q.Strike - underlying) / underlying
		if m < 0 {
			m = -m
		}
		out = append(out, Candidate{Quote: q, Moneyness: m})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Moneyness < out[j].Moneyness })
	if len(out) > MaxContracts {
		out = out[:MaxContracts]
	}
	return out
}

// Compute returns the day's index value in percent, or None when no selected
// contract yields an implied volatility strictly inside (MinIV, MaxIV).
func (a *Aggregator) Compute(quotes []model.OptionQuote, underlying float64) model.Float {
	selected := a.Select(quotes, underlying)

	ivs := make([]float64, 0, len(selected))
	moneyness := make([]float64, 0, len(selected))
	for _, c := range selected {
		iv := a.impliedVol(c.Quote, underlying)
		if !iv.Valid || iv.Value <= MinIV || iv.Value >= MaxIV {
			continue
		}
		ivs = append(ivs, iv.Value)
		moneyness = append(moneyness, c.Moneyness)
	}
	if len(ivs) == 0 {
		return model.None
	}

	var index float64
	for i, w := range Weights(moneyness) {
		index += w * ivs[i]
	}
	return model.Some(index * 100)
}

func (a *Aggregator) impliedVol(q model.OptionQuote, underlying float64) model.Float {
	t := float64(q.DaysToExpiry) / DaysPerYear
	iv, ok := pricing.ImpliedVolatility(q.Price, underlying, q.Strike, t, a.RiskFreeRate, model.Call)
	if !ok {
		return model.None
	}
	return model.Some(iv)
}

// Weights returns 1/(1+moneyness) for each contract normalized to sum to 1.
func Weights(moneyness []float64) []float64 {
	w := make([]float64, len(moneyness))
	var sum float64
	for i, m := range moneyness {
		w[i] = 1 / (1 + m)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// ComputeDates computes one VixRecord per requested date from an option chain.
// The underlying price of a date is taken from its first quote.
func (a *Aggregator) ComputeDates(chain []model.OptionQuote, dates []time.Time) []model.VixRecord {
	byDate := GroupByDate(chain)
	out := make([]model.VixRecord, 0, len(dates))
	for _, d := range dates {
		day := model.Day(d)
		quotes := byDate[day]
		if len(quotes) == 0 {
			continue
		}
		out = append(out, model.VixRecord{
			Date:  day,
			Value: a.Compute(quotes, quotes[0].UnderlyingPrice),
		})
	}
	return out
}

// GroupByDate buckets quotes by calendar date, preserving their order.
func GroupByDate(chain []model.OptionQuote) map[time.Time][]model.OptionQuote {
	out := make(map[time.Time][]model.OptionQuote)
	for _, q := range chain {
		d := model.Day(q.Date)
		out[d] = append(out[d], q)
	}
	return out
}
