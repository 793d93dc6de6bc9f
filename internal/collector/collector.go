package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"EtfVolatility/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Prices     map[string][]model.PricePoint
	Inceptions map[string]time.Time
	Err        error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many price history requests were made.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

// FetchPriceHistory returns the configured rows dated within [start, end].
func (m *MockFetcher) FetchPriceHistory(_ context.Context, code string, start, end time.Time) ([]model.PricePoint, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, &FetchError{Source: m.Name(), Code: code, Op: "price history", Err: m.Err}
	}
	var out []model.PricePoint
	for _, p := range m.Prices[code] {
		if p.Date.Before(model.Day(start)) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FetchInceptionDate returns the configured inception date for code.
func (m *MockFetcher) FetchInceptionDate(_ context.Context, code string) (time.Time, error) {
	if d, ok := m.Inceptions[code]; ok {
		return d, nil
	}
	return time.Time{}, &FetchError{Source: m.Name(), Code: code, Op: "inception", Err: errors.New("unknown instrument")}
}

// GenerateMockPrices builds count consecutive business-day closes starting at start.
func GenerateMockPrices(start time.Time, count int, basePrice float64, drift float64) []model.PricePoint {
	out := make([]model.PricePoint, 0, count)
	d := model.Day(start)
	p := basePrice
	for len(out) < count {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, model.PricePoint{Date: d, Close: p})
			p *= 1 + drift
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}
