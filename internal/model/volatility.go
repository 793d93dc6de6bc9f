package model

import (
	"math"
	"strconv"
	"time"
)

// Float is a float64 that may be undefined, e.g. HV before a full window
// or a day with no invertible option contracts.
type Float struct {
	Value float64
	Valid bool
}

// Some wraps a defined value.
func Some(v float64) Float { return Float{Value: v, Valid: true} }

// None is the undefined value.
var None = Float{}

// Ptr returns nil for an undefined value.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// String renders the shortest exact form, or an empty string when undefined.
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// ParseFloat is the inverse of String; empty and NaN map to None.
func ParseFloat(s string) (Float, error) {
	if s == "" {
		return None, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None, err
	}
	if math.IsNaN(v) {
		return None, nil
	}
	return Some(v), nil
}

// HVRecord is the close augmented with annualized historical volatility
// percentages over 20, 60 and 252 trading days.
type HVRecord struct {
	Date  time.Time
	Close float64
	HV20  Float
	HV60  Float
	HV252 Float
}

func (r HVRecord) Key() time.Time { return r.Date }

// VixRecord is the synthetic volatility index for one trading date.
type VixRecord struct {
	Date  time.Time
	Value Float
}

func (r VixRecord) Key() time.Time { return r.Date }
