// Package observability provides Prometheus metrics for update runs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"EtfVolatility/internal/model"
)

// Metrics holds the update metrics.
type Metrics struct {
	StepOutcomes    *prometheus.CounterVec
	RowsAdded       *prometheus.CounterVec
	UpdateDuration  *prometheus.HistogramVec
	BatchRuns       prometheus.Counter
	LastBatchFinish prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "etf_volatility"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		StepOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_step_total",
			Help:      "Update step outcomes by instrument, step and status.",
		}, []string{"code", "step", "status"}),
		RowsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_added_total",
			Help:      "Rows merged into persisted series.",
		}, []string{"code", "artifact"}),
		UpdateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instrument_update_seconds",
			Help:      "Wall time of one instrument update.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"code"}),
		BatchRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Completed batch updates.",
		}),
		LastBatchFinish: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_finish_timestamp_seconds",
			Help:      "Unix time the last batch update finished.",
		}),
		gatherer: reg,
	}
}

// ObserveReport records one instrument's outcome.
func (m *Metrics) ObserveReport(r model.StatusReport, elapsed time.Duration) {
	m.StepOutcomes.WithLabelValues(r.Code, "price", string(r.Price)).Inc()
	m.StepOutcomes.WithLabelValues(r.Code, "hv", string(r.HV)).Inc()
	m.StepOutcomes.WithLabelValues(r.Code, "vix", string(r.VIX)).Inc()
	m.RowsAdded.WithLabelValues(r.Code, "price").Add(float64(r.NewPrices))
	m.RowsAdded.WithLabelValues(r.Code, "vix").Add(float64(r.NewVix))
	m.UpdateDuration.WithLabelValues(r.Code).Observe(elapsed.Seconds())
}

// ObserveBatch records completion of a batch.
func (m *Metrics) ObserveBatch(finished time.Time) {
	m.BatchRuns.Inc()
	m.LastBatchFinish.Set(float64(finished.Unix()))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
