//go:build wireinject
// +build wireinject

package di

import (
	"BoltX/pkg/config"
	"BoltX/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideEventStore,
		ProvidePredictionStore,
		ProvidePredictionPublisher,

		// Use cases
		ProvideRiskScorer,
		ProvidePredictionSink,
		ProvidePersistPipeline,
		ProvideRiskUseCase,
		ProvideCheckoutEventsHandler,

		// Transport
		ProvideIdentityResolver,
		ProvideRiskHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
