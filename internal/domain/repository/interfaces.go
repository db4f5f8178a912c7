package repository

import (
	"context"

	"FinAlloc/internal/domain/models"
)

// PriceHistory yields the candidate assets of one class.
// Implementations return assets sorted by symbol, each with a window of exactly
// `window` normalized closes. Symbols with too little history are skipped.
type PriceHistory interface {
	LoadClass(ctx context.Context, class models.AssetClass, window int) ([]models.Asset, error)
	Close() error
}

// PlanPublisher announces finished plans to downstream consumers.
type PlanPublisher interface {
	PublishPlan(ctx context.Context, key string, msg models.PlanResultMessage) error
	Close() error
}

type Metrics interface {
	RecordPlan(profile string, status string)
	RecordClassOutcome(class string, rule string)
	RecordFallback(class string, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordForecast(class string, cached bool)
}
