//go:build wireinject
// +build wireinject

package di

import (
	"IgniteX/pkg/config"
	"IgniteX/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(mgr *config.Manager) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideDedupStore,
		ProvideWeightStore,
		ProvideWeightStorePort,
		ProvideWeightReader,
		ProvideBufferStore,
		ProvideSubscriberStore,
		ProvideSignalArchive,
		ProvideQueue,
		ProvideOutcomeQueue,

		// Collaborator services
		ProvideStrategies,
		ProvideRegimeDetector,
		ProvideWinProbEstimator,
		ProvideMarketProvider,
		ProvideMarketDataPort,
		ProvidePriceStream,

		// Use cases
		ProvideAggregator,
		ProvideExpiryCalculator,
		ProvideQualityGate,
		ProvideDistributor,
		ProvideOutcomeMonitor,
		ProvideFeedbackLoop,
		ProvideEngine,
		ProvideTickPipeline,

		// HTTP and application
		ProvideOperatorHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
