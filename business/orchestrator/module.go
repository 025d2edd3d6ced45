// Package orchestrator implements the C11 bounded context: the single
// cooperative scheduler that ties every other bounded context together
// into the running poll/detect/size/cost/plan/execute/persist pipeline.
package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	arbitrageDI "github.com/fd1az/flashbot/business/arbitrage/di"
	executionDI "github.com/fd1az/flashbot/business/execution/di"
	ethadapter "github.com/fd1az/flashbot/business/execution/infra/ethereum"
	gasDI "github.com/fd1az/flashbot/business/gas/di"
	"github.com/fd1az/flashbot/business/orchestrator/app"
	orchestratorDI "github.com/fd1az/flashbot/business/orchestrator/di"
	poolDI "github.com/fd1az/flashbot/business/pool/di"
	registryDI "github.com/fd1az/flashbot/business/registry/di"
	storeDI "github.com/fd1az/flashbot/business/store/di"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the pipeline orchestrator bounded context. It must be
// registered last: it is the only bounded context that reaches into every
// other one.
type Module struct{}

// RegisterServices assembles the Scheduler around every stage it drives.
// The executor calldata encoder is constructed fresh here rather than
// resolved through DI, matching the execution module's own precedent of
// building one wherever it's needed rather than sharing a single instance.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, orchestratorDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		encoder, err := ethadapter.NewContractEncoder()
		if err != nil {
			panic("failed to build executor encoder: " + err.Error())
		}
		wallet, err := walletAddress(cfg)
		if err != nil {
			panic("failed to derive wallet address: " + err.Error())
		}

		schedulerCfg := app.Config{
			PollInterval:    cfg.Monitor.PollInterval,
			ProbeInput:      cfg.Detector.DefaultInputWeiBig(),
			ExecutorAddress: cfg.Chain.ExecutorAddress,
			WalletAddress:   wallet,
		}

		registry := registryDI.GetService(sr).Registry

		return app.NewScheduler(
			schedulerCfg,
			poolDI.GetReader(sr),
			arbitrageDI.GetDetector(sr),
			arbitrageDI.GetSizer(sr),
			arbitrageDI.GetEstimator(sr),
			gasDI.GetOracle(sr),
			registry,
			encoder,
			executionDI.GetEngine(sr),
			executionDI.GetBreaker(sr),
			storeDI.GetService(sr),
			log,
		)
	})
	return nil
}

// Startup begins the scheduler's tick loop. It returns immediately; the
// loop runs for the lifetime of the process until the caller cancels ctx.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	scheduler := orchestratorDI.GetScheduler(mono.Services())
	scheduler.Start(ctx)
	mono.Logger().Info(ctx, "orchestrator module started",
		"poll_interval", mono.Config().Monitor.PollInterval.String(),
		"dry_run", mono.Config().Execution.DryRun,
	)
	return nil
}

func walletAddress(cfg *config.Config) (common.Address, error) {
	key, err := cfg.Execution.WalletPrivateKeyECDSA()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
