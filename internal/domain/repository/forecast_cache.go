package repository

import (
	"context"

	"FinAlloc/internal/domain/models"
)

// ForecastCache memoizes predictor outputs per (model, window) pair.
// A miss is reported with ok=false and a nil error.
type ForecastCache interface {
	Get(ctx context.Context, fingerprint string, window models.PriceWindow) (value float64, ok bool, err error)
	Set(ctx context.Context, fingerprint string, window models.PriceWindow, value float64) error
}
