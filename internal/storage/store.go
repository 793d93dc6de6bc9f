// Package storage persists per-instrument series artifacts.
//
// Each instrument owns three independently keyed, date-ordered artifacts
// (price history, price history with HV, VIX) plus a read-only option chain
// snapshot produced upstream. Writes replace an artifact in full and are
// atomic from a reader's point of view.
package storage

import (
	"errors"

	"EtfVolatility/internal/model"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Kind names a persisted artifact.
type Kind string

const (
	KindPrice       Kind = "price"
	KindHV          Kind = "hv"
	KindVix         Kind = "vix"
	KindOptionChain Kind = "option_chain"
)

// Store is a keyed read/write store for series artifacts. Reads return
// ErrNotFound when the artifact is absent. Writes reject rows whose dates are
// not strictly ascending.
type Store interface {
	ReadPrices(code string) ([]model.PricePoint, error)
	WritePrices(code string, rows []model.PricePoint) error
	ReadHV(code string) ([]model.HVRecord, error)
	WriteHV(code string, rows []model.HVRecord) error
	ReadVix(code string) ([]model.VixRecord, error)
	WriteVix(code string, rows []model.VixRecord) error
	ReadOptionChain(code string) ([]model.OptionQuote, error)
	Close() error
}
