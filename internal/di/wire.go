//go:build wireinject
// +build wireinject

package di

import (
	"StockBrain/pkg/config"
	"StockBrain/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideTwelveDataClient,

		// Repositories
		ProvideBarStore,
		ProvideBarSource,
		ProvideMarketDirectory,
		ProvideForecastPublisher,
		ProvideJobStore,

		// Engine and use cases
		ProvideEngine,
		ProvideForecastUseCase,
		ProvideBatchForecastUseCase,
		ProvideBarsUseCase,
		ProvideMarketUseCase,
		ProvideJobQueue,
		ProvideForecastJobs,
		ProvideBarsIngestHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideHealthChecks,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
