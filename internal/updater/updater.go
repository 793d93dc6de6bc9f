// Package updater runs incremental per-instrument updates:
// fetch → merge prices → recompute HV → compute missing VIX dates → persist.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"EtfVolatility/internal/calculator"
	"EtfVolatility/internal/collector"
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/observability"
	"EtfVolatility/internal/series"
	"EtfVolatility/internal/storage"
	"EtfVolatility/internal/vix"
)

var (
	// ErrMissingPrerequisite marks a step skipped because its input artifact is absent.
	ErrMissingPrerequisite = errors.New("missing prerequisite")

	// ErrNoInstruments is returned by UpdateAll when nothing is configured.
	ErrNoInstruments = errors.New("no instruments configured")
)

// Options for creating an Updater.
type Options struct {
	Fetcher    collector.Fetcher
	Store      storage.Store
	Aggregator *vix.Aggregator

	// Metrics is optional.
	Metrics *observability.Metrics
	// Workers bounds parallel instrument updates; <= 1 runs sequentially.
	Workers int
	// Epoch is the fetch start when neither history nor inception is
	// known. Defaults to series.DefaultEpoch.
	Epoch time.Time
	// Now defaults to time.Now.
	Now func() time.Time
}

// Updater coordinates instrument updates. Each instrument's steps run in
// order; different instruments share no state.
type Updater struct {
	fetcher    collector.Fetcher
	store      storage.Store
	aggregator *vix.Aggregator
	metrics    *observability.Metrics
	workers    int
	epoch      time.Time
	now        func() time.Time
}

// New creates an Updater.
func New(opts Options) *Updater {
	agg := opts.Aggregator
	if agg == nil {
		agg = vix.NewAggregator(vix.DefaultRiskFreeRate)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = series.DefaultEpoch
	}
	return &Updater{
		fetcher:    opts.Fetcher,
		store:      opts.Store,
		aggregator: agg,
		metrics:    opts.Metrics,
		workers:    opts.Workers,
		epoch:      model.Day(epoch),
		now:        now,
	}
}

// UpdateAll updates every instrument and returns reports in input order.
// A failing instrument never aborts the batch.
func (u *Updater) UpdateAll(ctx context.Context, instruments []model.Instrument) ([]model.StatusReport, error) {
	if len(instruments) == 0 {
		return nil, ErrNoInstruments
	}
	reports := make([]model.StatusReport, len(instruments))

	if u.workers <= 1 {
		for i, inst := range instruments {
			reports[i] = u.UpdateInstrument(ctx, inst)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(u.workers)
		for i, inst := range instruments {
			i, inst := i, inst
			g.Go(func() error {
				reports[i] = u.UpdateInstrument(gctx, inst)
				return nil
			})
		}
		_ = g.Wait()
	}

	if u.metrics != nil {
		u.metrics.ObserveBatch(u.now())
	}
	return reports, nil
}

// UpdateInstrument runs the price, HV and VIX steps for one instrument. Each
// step's outcome is reported independently.
func (u *Updater) UpdateInstrument(ctx context.Context, inst model.Instrument) model.StatusReport {
	started := time.Now()
	report := model.StatusReport{Code: inst.Code, Name: inst.Name}
	log.Printf("[INFO] updating %s (%s)", inst.Name, inst.Code)

	status, n, err := u.updatePrices(ctx, inst)
	report.Price, report.NewPrices = status, n
	u.record(&report, "price", err)

	status, err = u.updateHV(inst.Code)
	report.HV = status
	u.record(&report, "hv", err)

	status, n, err = u.updateVix(inst.Code)
	report.VIX, report.NewVix = status, n
	u.record(&report, "vix", err)

	if u.metrics != nil {
		u.metrics.ObserveReport(report, time.Since(started))
	}
	return report
}

func (u *Updater) record(report *model.StatusReport, step string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingPrerequisite):
		log.Printf("[INFO] %s %s skipped: %v", report.Code, step, err)
	default:
		log.Printf("[ERROR] %s %s: %v", report.Code, step, err)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", step, err))
	}
}

func (u *Updater) updatePrices(ctx context.Context, inst model.Instrument) (model.StepStatus, int, error) {
	existing, err := u.store.ReadPrices(inst.Code)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.StepFailed, 0, fmt.Errorf("read prices: %w", err)
	}

	inception := inst.Inception
	if len(existing) == 0 && inception.IsZero() {
		inception = u.lookupInception(ctx, inst.Code)
	}
	if inception.IsZero() {
		inception = u.epoch
	}
	start := series.FetchStart(existing, inception)
	end := model.Day(u.now())
	if start.After(end) {
		log.Printf("[INFO] %s prices already current through %s", inst.Code, end.Format(model.DateLayout))
		return model.StepNoChange, 0, nil
	}

	fetched, err := u.fetcher.FetchPriceHistory(ctx, inst.Code, start, end)
	if err != nil {
		return model.StepFailed, 0, err
	}
	if len(fetched) == 0 {
		log.Printf("[INFO] %s no new prices since %s", inst.Code, start.Format(model.DateLayout))
		return model.StepNoChange, 0, nil
	}

	merged := series.Merge(existing, fetched)
	if err := u.store.WritePrices(inst.Code, merged); err != nil {
		return model.StepFailed, 0, fmt.Errorf("write prices: %w", err)
	}
	log.Printf("[INFO] %s merged %d price rows (total %d)", inst.Code, len(fetched), len(merged))
	return model.StepUpdated, len(fetched), nil
}

func (u *Updater) lookupInception(ctx context.Context, code string) time.Time {
	lookup, ok := u.fetcher.(collector.InceptionFetcher)
	if !ok {
		return time.Time{}
	}
	d, err := lookup.FetchInceptionDate(ctx, code)
	if err != nil {
		log.Printf("[WARN] %s inception lookup failed, using %s: %v",
			code, u.epoch.Format(model.DateLayout), err)
		return time.Time{}
	}
	return d
}

// updateHV recomputes the full HV artifact from the persisted price history.
func (u *Updater) updateHV(code string) (model.StepStatus, error) {
	prices, err := u.store.ReadPrices(code)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(prices) == 0) {
		return model.StepSkipped, fmt.Errorf("%w: price history absent", ErrMissingPrerequisite)
	}
	if err != nil {
		return model.StepFailed, fmt.Errorf("read prices: %w", err)
	}

	hv := calculator.BuildHVSeries(prices)
	if err := u.store.WriteHV(code, hv); err != nil {
		return model.StepFailed, fmt.Errorf("write hv: %w", err)
	}
	return model.StepUpdated, nil
}

// updateVix computes the index for option-chain dates not yet persisted.
func (u *Updater) updateVix(code string) (model.StepStatus, int, error) {
	chain, err := u.store.ReadOptionChain(code)
	if errors.Is(err, storage.ErrNotFound) {
		return model.StepSkipped, 0, fmt.Errorf("%w: option chain absent", ErrMissingPrerequisite)
	}
	if err != nil {
		return model.StepFailed, 0, fmt.Errorf("read option chain: %w", err)
	}

	existing, err := u.store.ReadVix(code)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.StepFailed, 0, fmt.Errorf("read vix: %w", err)
	}

	dates := series.Missing(chain, existing)
	if len(dates) == 0 {
		log.Printf("[INFO] %s no new option dates", code)
		return model.StepNoChange, 0, nil
	}

	computed := u.aggregator.ComputeDates(chain, dates)
	merged := series.Merge(existing, computed)
	if err := u.store.WriteVix(code, merged); err != nil {
		return model.StepFailed, 0, fmt.Errorf("write vix: %w", err)
	}

	undefined := 0
	for _, r := range computed {
		if !r.Value.Valid {
			undefined++
		}
	}
	log.Printf("[INFO] %s computed VIX for %d dates (%d undefined)", code, len(computed), undefined)
	return model.StepUpdated, len(computed), nil
}
