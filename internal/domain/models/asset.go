package models

import "fmt"

// DefaultWindow is the number of trailing closes fed to the predictor.
const DefaultWindow = 60

// PriceWindow holds trailing closes min-max scaled per asset into [0,1].
type PriceWindow []float64

// Validate checks the window length and value range.
func (w PriceWindow) Validate(size int) error {
	if len(w) != size {
		return fmt.Errorf("%w: window has %d points, want %d", ErrInsufficientData, len(w), size)
	}
	for i, v := range w {
		if v < 0 || v > 1 || v != v {
			return fmt.Errorf("%w: window[%d]=%v outside [0,1]", ErrInsufficientData, i, v)
		}
	}
	return nil
}

// Asset is one candidate symbol with its model input and raw return history.
type Asset struct {
	Symbol  string
	Class   AssetClass
	Window  PriceWindow
	Returns []float64 // simple returns of the raw closes behind Window
}

// Forecast is the model output for one symbol.
type Forecast struct {
	Symbol          string  `json:"symbol"`
	PredictedReturn float64 `json:"predicted_return"`
}

// Forecasts keeps insertion order, which is also the tie-break order for ranking.
type Forecasts []Forecast

// Map returns symbol -> predicted return.
func (f Forecasts) Map() map[string]float64 {
	out := make(map[string]float64, len(f))
	for _, x := range f {
		out[x.Symbol] = x.PredictedReturn
	}
	return out
}

// Symbols returns symbols in order.
func (f Forecasts) Symbols() []string {
	out := make([]string, len(f))
	for i, x := range f {
		out[i] = x.Symbol
	}
	return out
}

// Returns returns predicted returns in order.
func (f Forecasts) Returns() []float64 {
	out := make([]float64, len(f))
	for i, x := range f {
		out[i] = x.PredictedReturn
	}
	return out
}
