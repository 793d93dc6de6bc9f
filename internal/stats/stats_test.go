package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EtfVolatility/internal/calculator"
	"EtfVolatility/internal/collector"
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/storage"
)

var etf = model.Instrument{Code: "510300.SH", Name: "300ETF_Huatai"}

func TestBuild_RequiresHistory(t *testing.T) {
	_, err := Build(storage.NewMemoryStore(), etf)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBuild(t *testing.T) {
	s := storage.NewMemoryStore()
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	prices := collector.GenerateMockPrices(start, 400, 4, 0.001)
	require.NoError(t, s.WritePrices(etf.Code, prices))
	require.NoError(t, s.WriteHV(etf.Code, calculator.BuildHVSeries(prices)))

	last := prices[len(prices)-1].Date
	require.NoError(t, s.WriteVix(etf.Code, []model.VixRecord{
		{Date: last.AddDate(-2, 0, 0), Value: model.Some(30)},
		{Date: last.AddDate(0, -6, 0), Value: model.Some(10)},
		{Date: last.AddDate(0, -1, 0), Value: model.None},
		{Date: last, Value: model.Some(20)},
	}))

	sum, err := Build(s, etf)
	require.NoError(t, err)
	assert.Equal(t, last, sum.Date)
	assert.Equal(t, prices[len(prices)-1].Close, sum.Close)
	assert.True(t, sum.HV20.Valid)
	assert.True(t, sum.HV252.Valid)

	// Monotonically rising closes: the latest is above every other close.
	assert.InDelta(t, 399.0/400*100, sum.ClosePct.All.Value, 1e-9)
	assert.Equal(t, prices[len(prices)-1].Close, sum.High52w)
	assert.Equal(t, prices[len(prices)-252].Close, sum.Low52w)
	assert.Equal(t, 1.0, sum.RangePos52w)

	assert.Equal(t, model.Some(20), sum.VIX)
	assert.InDelta(t, 100.0/3, sum.VixPct.All.Value, 1e-9)
	assert.InDelta(t, 50.0, sum.VixPct.Year.Value, 1e-9)
}

func TestBuild_WithoutVix(t *testing.T) {
	s := storage.NewMemoryStore()
	prices := collector.GenerateMockPrices(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10, 1, 0)
	require.NoError(t, s.WritePrices(etf.Code, prices))
	require.NoError(t, s.WriteHV(etf.Code, calculator.BuildHVSeries(prices)))

	sum, err := Build(s, etf)
	require.NoError(t, err)
	assert.False(t, sum.VIX.Valid)
	assert.False(t, sum.VixPct.All.Valid)
	assert.False(t, sum.HV20Pct.All.Valid)
	assert.Equal(t, 0.0, sum.ClosePct.All.Value)
	assert.Equal(t, 0.5, sum.RangePos52w)
}
