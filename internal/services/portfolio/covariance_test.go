package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
)

func assetWithReturns(sym string, r ...float64) models.Asset {
	return models.Asset{Symbol: sym, Returns: r}
}

func TestStabilize_SymmetricPositiveDefinite(t *testing.T) {
	// fewer observations than assets: the sample covariance alone is singular
	assets := []models.Asset{
		assetWithReturns("A", 0.01, -0.02, 0.015),
		assetWithReturns("B", 0.02, -0.01, 0.01),
		assetWithReturns("C", -0.01, 0.03, 0.0),
		assetWithReturns("D", 0.0, 0.01, -0.02),
		assetWithReturns("E", 0.005, 0.005, 0.005),
	}
	cov, err := NewCovarianceStabilizer().Stabilize(assets)
	require.NoError(t, err)
	require.Equal(t, 5, cov.SymmetricDim())

	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			assert.Equal(t, cov.At(i, j), cov.At(j, i))
		}
	}
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(cov), "shrunk covariance must be positive definite")
}

func TestStabilize_InsufficientData(t *testing.T) {
	s := NewCovarianceStabilizer()

	_, err := s.Stabilize(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = s.Stabilize([]models.Asset{assetWithReturns("A", 0.1), assetWithReturns("B", 0.2)})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = s.Stabilize([]models.Asset{assetWithReturns("A", 0.1, 0.2), assetWithReturns("B", 0.2, 0.1, 0.3)})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestLedoitWolf_IdentityTargetIsFixedPoint(t *testing.T) {
	// two uncorrelated series with equal variance: S is already mu*I
	x := mat.NewDense(4, 2, []float64{
		1, 1,
		-1, 1,
		1, -1,
		-1, -1,
	})
	cov, delta := LedoitWolf(x)
	assert.InDelta(t, 4.0/3.0, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 4.0/3.0, cov.At(1, 1), 1e-12)
	assert.InDelta(t, 0, cov.At(0, 1), 1e-12)
	assert.GreaterOrEqual(t, delta, 0.0)
	assert.LessOrEqual(t, delta, 1.0)
}

func TestLedoitWolf_ShrinksOffDiagonal(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{
		0.01, 0.012,
		-0.02, -0.018,
		0.03, 0.025,
		0.00, 0.002,
		-0.01, -0.011,
	})
	cov, delta := LedoitWolf(x)
	require.Greater(t, delta, 0.0)

	var raw mat.SymDense
	rawCov(&raw, x)
	assert.Less(t, math.Abs(cov.At(0, 1)), math.Abs(raw.At(0, 1)))
}

func TestSubCovarianceAndVolatility(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 9, 2,
		0, 2, 16,
	})
	sub := SubCovariance(cov, []int{2, 0})
	assert.Equal(t, 16.0, sub.At(0, 0))
	assert.Equal(t, 4.0, sub.At(1, 1))
	assert.Equal(t, 0.0, sub.At(0, 1))

	assert.InDelta(t, 2.0, Volatility([]float64{1, 0, 0}, cov), 1e-12)
	// w = (.5,.5,0): .25*4 + .25*9 + 2*.25*1 = 3.75
	assert.InDelta(t, math.Sqrt(3.75), Volatility([]float64{0.5, 0.5, 0}, cov), 1e-12)
}
