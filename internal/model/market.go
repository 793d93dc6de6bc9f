package model

import "time"

// DateLayout is the on-disk and display format for trade dates.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a trade date in either 2006-01-02 or 20060102 form.
func ParseDay(s string) (time.Time, error) {
	if len(s) == 8 {
		t, err := time.Parse("20060102", s)
		if err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// PricePoint is one daily close of an instrument.
type PricePoint struct {
	Date  time.Time
	Close float64
}

func (p PricePoint) Key() time.Time { return p.Date }

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// OptionQuote is a single contract row from an option chain snapshot.
type OptionQuote struct {
	Date            time.Time
	Strike          float64
	DaysToExpiry    int
	Type            OptionType
	Price           float64
	UnderlyingPrice float64
}

func (q OptionQuote) Key() time.Time { return q.Date }
