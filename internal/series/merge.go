// Package series merges and orders date-keyed rows for persisted artifacts.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"EtfVolatility/internal/model"
)

// DefaultEpoch is the first fetch date when neither history nor inception is known.
var DefaultEpoch = time.Date(2017, 9, 1, 0, 0, 0, 0, time.UTC)

// ErrDataIntegrity is returned when rows expected to be strictly ascending are not.
var ErrDataIntegrity = errors.New("data integrity: dates must be unique and ascending")

// Row is any record keyed by trade date.
type Row interface {
	Key() time.Time
}

// Merge combines existing and incoming rows, deduplicated by calendar date.
// On a collision the incoming row wins. The result is ascending by date and
// merging the same batch twice yields the same series.
func Merge[T Row](existing, incoming []T) []T {
	byDay := make(map[time.Time]T, len(existing)+len(incoming))
	for _, r := range existing {
		byDay[model.Day(r.Key())] = r
	}
	for _, r := range incoming {
		byDay[model.Day(r.Key())] = r
	}

	out := make([]T, 0, len(byDay))
	for _, r := range byDay {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Before(out[j].Key()) })
	return out
}

// Validate checks that rows are strictly ascending by calendar date.
func Validate[T Row](rows []T) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := model.Day(rows[i-1].Key()), model.Day(rows[i].Key())
		if !cur.After(prev) {
			return fmt.Errorf("%w: row %d (%s) follows %s", ErrDataIntegrity, i,
				cur.Format(model.DateLayout), prev.Format(model.DateLayout))
		}
	}
	return nil
}

// FetchStart returns the first date to request from the provider: the day
// after the last existing row, else the inception date, else DefaultEpoch.
func FetchStart[T Row](existing []T, inception time.Time) time.Time {
	if len(existing) > 0 {
		last := existing[0].Key()
		for _, r := range existing[1:] {
			if r.Key().After(last) {
				last = r.Key()
			}
		}
		return model.Day(last).AddDate(0, 0, 1)
	}
	if !inception.IsZero() {
		return model.Day(inception)
	}
	return DefaultEpoch
}

// Dates returns the set of calendar dates present in rows.
func Dates[T Row](rows []T) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(rows))
	for _, r := range rows {
		set[model.Day(r.Key())] = struct{}{}
	}
	return set
}

// Missing returns the ascending distinct dates of candidates absent from have.
func Missing[T, U Row](candidates []T, have []U) []time.Time {
	known := Dates(have)
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, r := range candidates {
		d := model.Day(r.Key())
		if _, ok := known[d]; ok {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
