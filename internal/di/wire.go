//go:build wireinject
// +build wireinject

package di

import (
	"MacroPulse/pkg/config"
	"MacroPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideEndpointMetrics,

		// Infrastructure
		ProvideTickStore,
		ProvideTickPublisher,
		ProvideCacheService,
		ProvideAnalysisStore,
		ProvideSourceClient,
		ProvideIndicatorSource,
		ProvideHeadlineSource,
		ProvideGenerator,

		// Use cases
		ProvideSnapshotHolder,
		ProvideCollector,
		ProvideCandleAggregator,
		ProvideNewsUseCase,
		ProvideAnalysisGuard,
		ProvideReservesReader,

		// Transport
		ProvideClientLimiter,
		ProvideMarketHandler,
		ProvideAnalysisHandler,
		ProvideStreamHub,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
