package storage

import (
	"sync"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/series"
)

// MemoryStore keeps artifacts in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	prices  map[string][]model.PricePoint
	hv      map[string][]model.HVRecord
	vix     map[string][]model.VixRecord
	options map[string][]model.OptionQuote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:  make(map[string][]model.PricePoint),
		hv:      make(map[string][]model.HVRecord),
		vix:     make(map[string][]model.VixRecord),
		options: make(map[string][]model.OptionQuote),
	}
}

func (m *MemoryStore) ReadPrices(code string) ([]model.PricePoint, error) {
	return read(&m.mu, m.prices, code)
}

func (m *MemoryStore) WritePrices(code string, rows []model.PricePoint) error {
	return write(&m.mu, m.prices, code, rows)
}

func (m *MemoryStore) ReadHV(code string) ([]model.HVRecord, error) {
	return read(&m.mu, m.hv, code)
}

func (m *MemoryStore) WriteHV(code string, rows []model.HVRecord) error {
	return write(&m.mu, m.hv, code, rows)
}

func (m *MemoryStore) ReadVix(code string) ([]model.VixRecord, error) {
	return read(&m.mu, m.vix, code)
}

func (m *MemoryStore) WriteVix(code string, rows []model.VixRecord) error {
	return write(&m.mu, m.vix, code, rows)
}

func (m *MemoryStore) ReadOptionChain(code string) ([]model.OptionQuote, error) {
	return read(&m.mu, m.options, code)
}

// SetOptionChain installs an option chain snapshot for code.
func (m *MemoryStore) SetOptionChain(code string, quotes []model.OptionQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[code] = append([]model.OptionQuote(nil), quotes...)
}

func (m *MemoryStore) Close() error { return nil }

func read[T any](mu *sync.RWMutex, m map[string][]T, code string) ([]T, error) {
	mu.RLock()
	defer mu.RUnlock()
	rows, ok := m[code]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]T(nil), rows...), nil
}

func write[T series.Row](mu *sync.RWMutex, m map[string][]T, code string, rows []T) error {
	if err := series.Validate(rows); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	m[code] = append([]T(nil), rows...)
	return nil
}
