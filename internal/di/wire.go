//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinAlloc/pkg/config"
	"FinAlloc/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Model and caches
		ProvideModel,
		ProvideCacheService,
		ProvideForecastCache,

		// Infrastructure
		ProvidePriceHistory,
		ProvideKafkaProducer,
		ProvideKafkaPlanPublisher,
		ProvidePlanPublisher,
		ProvideKafkaConsumer,

		// Use cases
		ProvideForecaster,
		ProvidePipeline,
		ProvidePlanRequestHandler,

		// Transport
		ProvideInvestHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
