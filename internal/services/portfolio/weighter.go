package portfolio

import (
	"math"

	"github.com/shopspring/decimal"

	"FinAlloc/internal/domain/models"
)

// DefaultAmplification is the exponent scale of the return tilt.
const DefaultAmplification = 10.0

// Weight splits total across top in proportion to exp(k*r). The exponent is
// shifted by the largest return so it never exceeds zero. Scores are floored
// at the smallest positive float64, so every selected asset keeps a nonzero
// weight; once k*(best-r) passes about 745 the weights of such assets tie at
// that floor and round to zero cents. Amounts are not rounded.
func Weight(top models.Forecasts, total, amplification float64) []models.AssetAllocation {
	if len(top) == 0 {
		return nil
	}
	best := math.Inf(-1)
	for _, f := range top {
		best = max(best, f.PredictedReturn)
	}
	scores := make([]float64, len(top))
	sum := 0.0
	for i, f := range top {
		scores[i] = math.Max(math.Exp(amplification*(f.PredictedReturn-best)), math.SmallestNonzeroFloat64)
		sum += scores[i]
	}
	out := make([]models.AssetAllocation, len(top))
	for i, f := range top {
		w := scores[i] / sum
		out[i] = models.AssetAllocation{
			Symbol:          f.Symbol,
			PredictedReturn: f.PredictedReturn,
			Weight:          w,
			Amount:          total * w,
		}
	}
	return out
}

// Apply builds allocations from explicit weights, in the order of top.
func Apply(top models.Forecasts, weights []float64, total float64) []models.AssetAllocation {
	out := make([]models.AssetAllocation, len(top))
	for i, f := range top {
		out[i] = models.AssetAllocation{
			Symbol:          f.Symbol,
			PredictedReturn: f.PredictedReturn,
			Weight:          weights[i],
			Amount:          total * weights[i],
		}
	}
	return out
}

// RoundToCents rounds every amount to two decimals and assigns the residual
// cents to the largest position, so amounts sum to the rounded total exactly.
func RoundToCents(allocs []models.AssetAllocation, total float64) []models.AssetAllocation {
	if len(allocs) == 0 {
		return allocs
	}
	want := decimal.NewFromFloat(total).Round(2)
	sum := decimal.Zero
	largest := 0
	rounded := make([]decimal.Decimal, len(allocs))
	for i, a := range allocs {
		rounded[i] = decimal.NewFromFloat(a.Amount).Round(2)
		sum = sum.Add(rounded[i])
		if a.Amount > allocs[largest].Amount {
			largest = i
		}
	}
	rounded[largest] = rounded[largest].Add(want.Sub(sum))

	out := make([]models.AssetAllocation, len(allocs))
	for i, a := range allocs {
		a.Amount = rounded[i].InexactFloat64()
		out[i] = a
	}
	return out
}
