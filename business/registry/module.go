// Package registry implements the chain/pool registry bounded context:
// it validates the configured chain into a ChainRegistry and keeps a live
// cache of the chain head for the staleness gate.
package registry

import (
	"context"

	"github.com/fd1az/flashbot/business/registry/app"
	registryDI "github.com/fd1az/flashbot/business/registry/di"
	"github.com/fd1az/flashbot/business/registry/infra/headtracker"
	"github.com/fd1az/flashbot/business/registry/infra/ymlconfig"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the registry bounded context.
type Module struct{}

// RegisterServices validates the chain configuration and wires the head
// tracker; both fail fast (panic) on construction since a broken chain
// registry means nothing downstream can run.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, registryDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		chainRegistry, err := ymlconfig.BuildChainRegistry(&cfg.Chain)
		if err != nil {
			panic("failed to build chain registry: " + err.Error())
		}

		tracker, err := headtracker.NewTracker(
			headtracker.DefaultConfig(cfg.Chain.WebSocketURL, cfg.Chain.HTTPURL),
			log,
		)
		if err != nil {
			panic("failed to create head tracker: " + err.Error())
		}

		return app.NewService(chainRegistry, tracker, log)
	})
	return nil
}

// Startup starts the head tracker's background subscription.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	service := registryDI.GetService(mono.Services())
	service.Start(ctx)
	mono.Logger().Info(ctx, "registry module started",
		"chain", service.Registry.Name,
		"chain_id", service.Registry.ChainID,
		"pools", len(mono.Config().Chain.Pools),
	)
	return nil
}
