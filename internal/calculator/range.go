package calculator

import (
	"errors"
	"math"
	"time"

	"EtfVolatility/internal/model"
)

// ErrNoValues is returned when a series has no defined values to summarize.
var ErrNoValues = errors.New("no defined values")

// ValueRange scans the most recent n entries (all when n <= 0) and returns
// the high and low of the defined values.
func ValueRange(values []model.Float, n int) (high, low float64, err error) {
	start := 0
	if n > 0 && len(values) > n {
		start = len(values) - n
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	found := false
	for _, v := range values[start:] {
		if !v.Valid {
			continue
		}
		found = true
		if v.Value > high {
			high = v.Value
		}
		if v.Value < low {
			low = v.Value
		}
	}
	if !found {
		return 0, 0, ErrNoValues
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// Percentile returns the share of defined values strictly below current, in percent.
func Percentile(values []model.Float, current float64) (float64, error) {
	var below, total int
	for _, v := range values {
		if !v.Valid {
			continue
		}
		total++
		if v.Value < current {
			below++
		}
	}
	if total == 0 {
		return 0, ErrNoValues
	}
	return float64(below) / float64(total) * 100, nil
}

// PercentileSince is Percentile restricted to entries dated on or after since.
// dates and values are parallel slices.
func PercentileSince(dates []time.Time, values []model.Float, current float64, since time.Time) (float64, error) {
	window := make([]model.Float, 0, len(values))
	for i, d := range dates {
		if !d.Before(since) {
			window = append(window, values[i])
		}
	}
	return Percentile(window, current)
}
