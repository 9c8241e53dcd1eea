//go:build wireinject
// +build wireinject

package di

import (
	"Delphi/pkg/config"
	"Delphi/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,
		ProvideEventLoop,
		ProvideCache,

		// Channel and persistence layer
		ProvideChannels,
		ProvideSettingsStore,

		// Renderer bridge
		ProvideBridge,

		// Orchestration
		ProvideChart,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
