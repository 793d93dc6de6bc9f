package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EtfVolatility/internal/model"
)

func TestPercentile_StrictlyBelow(t *testing.T) {
	values := []model.Float{model.Some(10), model.Some(20), model.None, model.Some(30), model.Some(20)}
	p, err := Percentile(values, 20)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, p, 1e-12)
}

func TestPercentile_NoValues(t *testing.T) {
	_, err := Percentile([]model.Float{model.None}, 1)
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestPercentileSince(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{base, base.AddDate(0, 6, 0), base.AddDate(1, 0, 0), base.AddDate(1, 1, 0)}
	values := []model.Float{model.Some(1), model.Some(2), model.Some(3), model.Some(4)}

	p, err := PercentileSince(dates, values, 4, base.AddDate(0, 7, 0))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, p, 1e-12)
}

func TestValueRange(t *testing.T) {
	values := []model.Float{model.Some(50), model.Some(10), model.None, model.Some(30), model.Some(20)}

	high, low, err := ValueRange(values, 0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, high)
	assert.Equal(t, 10.0, low)

	high, low, err = ValueRange(values, 3)
	require.NoError(t, err)
	assert.Equal(t, 30.0, high)
	assert.Equal(t, 20.0, low)

	_, _, err = ValueRange([]model.Float{model.None}, 0)
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestRangePosition(t *testing.T) {
	pos, err := RangePosition(15, 20, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos, 1e-12)

	pos, _ = RangePosition(25, 20, 10)
	assert.Equal(t, 1.0, pos)

	pos, _ = RangePosition(7, 7, 7)
	assert.Equal(t, 0.5, pos)

	_, err = RangePosition(1, 0, 10)
	assert.Error(t, err)
}
