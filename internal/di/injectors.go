//go:build wireinject
// +build wireinject

package di

import (
	"amuletbot/internal"
	"amuletbot/internal/amulet"
	"amuletbot/internal/controllers"
	"amuletbot/internal/discord"
	"amuletbot/internal/persistence"
	"amuletbot/internal/providers"
	"amuletbot/internal/services"
	"amuletbot/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		persistence.NewCompressor,
		persistence.NewFileStore,

		discord.NewSession,
		discord.NewIdentityResolver,
		wire.Bind(new(services.IdentityResolver), new(*discord.IdentityResolver)),
		discord.NewChannelNotifier,
		wire.Bind(new(amulet.ChannelNotifier), new(*discord.ChannelNotifier)),

		services.NewGuildRepository,
		amulet.NewClock,
		amulet.NewEngine,
		discord.NewHandler,
		discord.NewBot,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
