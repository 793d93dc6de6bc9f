package model

import "time"

// Instrument identifies a tracked ETF. Values are immutable once built from config.
type Instrument struct {
	Code      string
	Name      string
	Inception time.Time // zero when unknown
}
