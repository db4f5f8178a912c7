package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlloc/internal/domain/models"
)

func TestSimpleReturns(t *testing.T) {
	assert.Nil(t, SimpleReturns([]float64{100}))

	got := SimpleReturns([]float64{100, 110, 99, 0, 50})
	require.Len(t, got, 4)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)
	assert.Equal(t, 0.0, got[2])
	assert.Equal(t, 0.0, got[3])
}

func TestMinMaxScale(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 0.25}, MinMaxScale([]float64{10, 20, 30, 15}))
	assert.Equal(t, []float64{0, 0, 0}, MinMaxScale([]float64{7, 7, 7}))
	assert.Empty(t, MinMaxScale(nil))
}

func TestBuildAsset(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}

	a, err := BuildAsset("AAPL", models.Stocks, closes, 4)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, models.Stocks, a.Class)
	require.NoError(t, a.Window.Validate(4))
	assert.InDeltaSlice(t, []float64{0, 1.0 / 3, 2.0 / 3, 1}, []float64(a.Window), 1e-12)
	assert.Len(t, a.Returns, 3)
	assert.InDelta(t, 0.2, a.Returns[2], 1e-12)

	_, err = BuildAsset("AAPL", models.Stocks, closes, 10)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
