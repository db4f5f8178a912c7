package features

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"FinAlloc/internal/domain/models"
)

// SimpleReturns computes r_t = C_t / C_{t-1} - 1.
// It returns a slice of length len(closes)-1, or nil if insufficient data.
// Non-positive prices yield a zero return for that step.
func SimpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		cur := closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

// MinMaxScale maps values linearly onto [0,1]. A flat series maps to all zeros.
func MinMaxScale(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// BuildAsset turns a chronological close series into a model input.
// Only the trailing `window` closes are used.
func BuildAsset(symbol string, class models.AssetClass, closes []float64, window int) (models.Asset, error) {
	if len(closes) < window {
		return models.Asset{}, fmt.Errorf("%w: %s has %d closes, want %d", models.ErrInsufficientData, symbol, len(closes), window)
	}
	tail := closes[len(closes)-window:]
	return models.Asset{
		Symbol:  symbol,
		Class:   class,
		Window:  models.PriceWindow(MinMaxScale(tail)),
		Returns: SimpleReturns(tail),
	}, nil
}
