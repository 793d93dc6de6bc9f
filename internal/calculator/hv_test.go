package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EtfVolatility/internal/model"
)

func constantPrices(n int, price float64) []model.PricePoint {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Close: price}
	}
	return out
}

func TestLogReturns(t *testing.T) {
	r := LogReturns([]float64{100, 110, 0, 121})
	require.Len(t, r, 4)
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, math.Log(1.1), r[1], 1e-12)
	assert.True(t, math.IsNaN(r[2]))
	assert.True(t, math.IsNaN(r[3]))
}

func TestHistoricalVolatility_ConstantSeriesIsZero(t *testing.T) {
	hv := BuildHVSeries(constantPrices(300, 100))
	require.Len(t, hv, 300)

	for i, r := range hv {
		if i < HVShort {
			assert.False(t, r.HV20.Valid, "HV20 at %d", i)
		} else {
			require.True(t, r.HV20.Valid, "HV20 at %d", i)
			assert.Equal(t, 0.0, r.HV20.Value)
		}
		if r.HV60.Valid {
			assert.Equal(t, 0.0, r.HV60.Value)
		}
		if r.HV252.Valid {
			assert.Equal(t, 0.0, r.HV252.Value)
		}
	}
	assert.False(t, hv[HVLong-1].HV252.Valid)
	assert.True(t, hv[HVLong].HV252.Valid)
}

func TestHistoricalVolatility_KnownValue(t *testing.T) {
	// Alternating +1%/-1% moves.
	closes := []float64{100}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]*1.01)
		} else {
			closes = append(closes, closes[len(closes)-1]/1.01)
		}
	}
	hv := HistoricalVolatility(closes, 20)

	r := math.Log(1.01)
	// 10 returns of +r and 10 of -r: mean 0, sample variance 20r²/19.
	want := math.Sqrt(20*r*r/19) * math.Sqrt(252) * 100
	require.True(t, hv[20].Valid)
	assert.InDelta(t, want, hv[20].Value, 1e-9)
	assert.False(t, hv[19].Valid)
}

func TestHistoricalVolatility_ShortSeries(t *testing.T) {
	hv := HistoricalVolatility([]float64{1, 2, 3}, 20)
	for _, v := range hv {
		assert.False(t, v.Valid)
	}
	assert.Empty(t, HistoricalVolatility(nil, 20))
}

func TestBuildHVSeries_KeepsDatesAndCloses(t *testing.T) {
	prices := constantPrices(5, 2.5)
	hv := BuildHVSeries(prices)
	for i := range prices {
		assert.Equal(t, prices[i].Date, hv[i].Date)
		assert.Equal(t, 2.5, hv[i].Close)
	}
}
