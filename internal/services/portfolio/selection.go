package portfolio

import (
	"cmp"
	"slices"

	"FinAlloc/internal/domain/models"
)

// DefaultTopN is how many assets per class receive money.
const DefaultTopN = 3

// SelectTop returns at most n forecasts sorted by descending predicted return.
// Equal forecasts keep their input order.
func SelectTop(forecasts models.Forecasts, n int) models.Forecasts {
	sorted := slices.Clone(forecasts)
	slices.SortStableFunc(sorted, func(a, b models.Forecast) int {
		return cmp.Compare(b.PredictedReturn, a.PredictedReturn)
	})
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
