// Package store implements C10, the crash-safe trade outcome ledger: a
// jsonl-backed append-only log plus the stats/last-N read side the report
// CLI and the orchestrator's periodic "stats" event use.
package store

import (
	"context"
	"time"

	"github.com/fd1az/flashbot/business/store/app"
	storeDI "github.com/fd1az/flashbot/business/store/di"
	"github.com/fd1az/flashbot/business/store/infra/jsonl"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the trade store bounded context.
type Module struct{}

// RegisterServices wires the jsonl-backed Store and the Service that sits
// in front of it. Opening the store loads and replays every existing
// line, so a broken data file fails fast here rather than silently
// losing history.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, storeDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		store, err := jsonl.New(cfg.Store.Path, log)
		if err != nil {
			panic("failed to open trade store: " + err.Error())
		}

		return app.NewService(store, func() int64 { return time.Now().UnixMilli() }, log)
	})
	return nil
}

// Startup logs the replayed trade count so an operator can see at a
// glance how much history survived a restart.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	service := storeDI.GetService(mono.Services())
	stats, err := service.Stats(ctx)
	if err != nil {
		return err
	}
	mono.Logger().Info(ctx, "store module started",
		"path", mono.Config().Store.Path,
		"outcomes_loaded", stats.TotalAttempted,
	)
	return nil
}
