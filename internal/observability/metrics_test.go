package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"EtfVolatility/internal/model"
)

func TestObserveReport(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveReport(model.StatusReport{
		Code:      "510050.SH",
		Price:     model.StepUpdated,
		HV:        model.StepUpdated,
		VIX:       model.StepSkipped,
		NewPrices: 3,
	}, 200*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepOutcomes.WithLabelValues("510050.SH", "vix", "SKIPPED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StepOutcomes.WithLabelValues("510050.SH", "vix", "FAILED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsAdded.WithLabelValues("510050.SH", "price")))
}

func TestHandler(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveBatch(time.Unix(1700000000, 0))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_batch_runs_total 1")
	assert.Contains(t, rec.Body.String(), "test_last_batch_finish_timestamp_seconds 1.7e+09")
}
