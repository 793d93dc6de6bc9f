package updater

import (
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/storage"
)

// LatestPrice returns the most recent persisted close.
func (u *Updater) LatestPrice(code string) (model.PricePoint, error) {
	rows, err := u.store.ReadPrices(code)
	return last(rows, err)
}

// LatestHV returns the most recent persisted HV record.
func (u *Updater) LatestHV(code string) (model.HVRecord, error) {
	rows, err := u.store.ReadHV(code)
	return last(rows, err)
}

// LatestVix returns the most recent persisted VIX record, which may be undefined.
func (u *Updater) LatestVix(code string) (model.VixRecord, error) {
	rows, err := u.store.ReadVix(code)
	return last(rows, err)
}

func last[T any](rows []T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, storage.ErrNotFound
	}
	return rows[len(rows)-1], nil
}
