// Package stats summarizes the latest persisted values of an instrument
// against their own history.
package stats

import (
	"errors"
	"fmt"
	"time"

	"EtfVolatility/internal/calculator"
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/storage"
)

// Percentiles places a value within its full history and its trailing year.
type Percentiles struct {
	All  model.Float
	Year model.Float
}

// Summary is the latest state of one instrument.
type Summary struct {
	Code  string
	Name  string
	Date  time.Time
	Close float64
	HV20  model.Float
	HV60  model.Float
	HV252 model.Float
	VIX   model.Float

	ClosePct Percentiles
	HV20Pct  Percentiles
	VixPct   Percentiles

	// 52-week close range and the latest close's position in it (0~1).
	High52w     float64
	Low52w      float64
	RangePos52w float64
}

// Build reads the persisted artifacts of inst and computes its summary.
// Price and HV history are required; the VIX artifact is optional.
func Build(store storage.Store, inst model.Instrument) (*Summary, error) {
	prices, err := store.ReadPrices(inst.Code)
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	hv, err := store.ReadHV(inst.Code)
	if err != nil {
		return nil, fmt.Errorf("read hv: %w", err)
	}
	if len(prices) == 0 || len(hv) == 0 {
		return nil, storage.ErrNotFound
	}
	vix, err := store.ReadVix(inst.Code)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read vix: %w", err)
	}

	lastPrice := prices[len(prices)-1]
	lastHV := hv[len(hv)-1]
	s := &Summary{
		Code:  inst.Code,
		Name:  inst.Name,
		Date:  lastPrice.Date,
		Close: lastPrice.Close,
		HV20:  lastHV.HV20,
		HV60:  lastHV.HV60,
		HV252: lastHV.HV252,
	}

	dates := make([]time.Time, len(prices))
	closes := make([]model.Float, len(prices))
	for i, p := range prices {
		dates[i], closes[i] = p.Date, model.Some(p.Close)
	}
	s.ClosePct = percentiles(dates, closes, model.Some(lastPrice.Close))
	if high, low, err := calculator.ValueRange(closes, calculator.TradingDaysPerYear); err == nil {
		s.High52w, s.Low52w = high, low
		s.RangePos52w, _ = calculator.RangePosition(lastPrice.Close, high, low)
	}

	dates = make([]time.Time, len(hv))
	hv20 := make([]model.Float, len(hv))
	for i, r := range hv {
		dates[i], hv20[i] = r.Date, r.HV20
	}
	s.HV20Pct = percentiles(dates, hv20, lastHV.HV20)

	if len(vix) > 0 {
		s.VIX = vix[len(vix)-1].Value
		dates = make([]time.Time, len(vix))
		values := make([]model.Float, len(vix))
		for i, r := range vix {
			dates[i], values[i] = r.Date, r.Value
		}
		s.VixPct = percentiles(dates, values, s.VIX)
	}
	return s, nil
}

// percentiles ranks current against all values and against the 365 days
// ending at the last date. An empty trailing window falls back to the full
// history.
func percentiles(dates []time.Time, values []model.Float, current model.Float) Percentiles {
	if !current.Valid || len(dates) == 0 {
		return Percentiles{}
	}
	all, err := calculator.Percentile(values, current.Value)
	if err != nil {
		return Percentiles{}
	}
	out := Percentiles{All: model.Some(all), Year: model.Some(all)}

	since := dates[len(dates)-1].AddDate(0, 0, -365)
	if year, err := calculator.PercentileSince(dates, values, current.Value, since); err == nil {
		out.Year = model.Some(year)
	}
	return out
}
