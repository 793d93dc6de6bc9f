package collector

import (
	"context"
	"fmt"
	"time"

	"EtfVolatility/internal/model"
)

// Fetcher retrieves daily price history from a market-data provider.
// Rows are returned ascending by date; an empty result is not an error.
type Fetcher interface {
	FetchPriceHistory(ctx context.Context, code string, start, end time.Time) ([]model.PricePoint, error)
	Name() string
}

// InceptionFetcher is implemented by providers that know an instrument's listing date.
type InceptionFetcher interface {
	FetchInceptionDate(ctx context.Context, code string) (time.Time, error)
}

// FetchError reports a provider or network failure.
type FetchError struct {
	Source string
	Code   string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Source, e.Op, e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
