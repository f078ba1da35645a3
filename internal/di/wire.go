//go:build wireinject
// +build wireinject

package di

import (
	"GridPulse/pkg/config"
	"GridPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideSnapshotStore,

		// Ingress
		ProvideQueue,
		ProvideIngressPipeline,
		ProvideIngress,

		// Inference and presentation
		ProvideForecaster,
		ProvideBoard,
		ProvideSnapshotSink,
		ProvideSinks,
		ProvideMonitor,

		// HTTP
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
