package service

import (
	"context"

	"FinAlloc/internal/domain/models"
)

// SequencePredictor maps a normalized price window to a predicted return.
// Implementations are safe for concurrent use once constructed.
type SequencePredictor interface {
	Predict(window models.PriceWindow) (float64, error)
	WindowSize() int
	Fingerprint() string
}

// ReturnForecaster applies a predictor to every asset of a class.
type ReturnForecaster interface {
	Forecast(ctx context.Context, assets []models.Asset) (models.Forecasts, error)
}
