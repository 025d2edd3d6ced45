// Package execution implements the C7/C8/C9 bounded context: the
// transaction planner, the gated execution engine, and the durable nonce
// ledger that together turn a costed candidate into a tracked on-chain
// outcome.
package execution

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashbot/business/execution/app"
	executionDI "github.com/fd1az/flashbot/business/execution/di"
	ethadapter "github.com/fd1az/flashbot/business/execution/infra/ethereum"
	registryDI "github.com/fd1az/flashbot/business/registry/di"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the C7/C8/C9 bounded context.
type Module struct{}

// RegisterServices wires the planner, breaker, nonce ledger, and engine
// from configuration and the ethclient and registry contexts they depend
// on. A missing or malformed signing key is a fatal startup defect, since
// nothing downstream can submit without one.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Breaker, func(sr di.ServiceRegistry) *app.Breaker {
		cfg := sr.Get("config").(*config.Config)
		return app.NewBreaker(cfg.Execution.MaxConsecutiveFailures)
	})

	di.RegisterToken(c, executionDI.Planner, func(sr di.ServiceRegistry) *app.Planner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		encoder, err := ethadapter.NewContractEncoder()
		if err != nil {
			panic("failed to build executor encoder: " + err.Error())
		}
		plannerCfg := app.PlannerConfig{
			ExecutorAddress:    cfg.Chain.ExecutorAddressHex(),
			ChainID:            new(big.Int).SetUint64(cfg.Chain.ChainID),
			PriorityFeePerGas:  cfg.Execution.PriorityFeeWeiBig(),
			GasLimitMultiplier: cfg.Execution.GasLimitMultiplier,
		}
		return app.NewPlanner(plannerCfg, encoder, log)
	})

	di.RegisterToken(c, executionDI.Ledger, func(sr di.ServiceRegistry) app.NonceLedger {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledger, err := ethadapter.NewFileNonceLedger(cfg.Execution.NonceLedgerPath, nowMs, log)
		if err != nil {
			panic("failed to open nonce ledger: " + err.Error())
		}
		return ledger
	})

	di.RegisterToken(c, executionDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		encoder, err := ethadapter.NewContractEncoder()
		if err != nil {
			panic("failed to build executor encoder: " + err.Error())
		}
		key, err := cfg.Execution.WalletPrivateKeyECDSA()
		if err != nil {
			panic("failed to parse wallet private key: " + err.Error())
		}
		submitter, err := ethadapter.NewTxSubmitter(ethClient, key, log)
		if err != nil {
			panic("failed to build transaction submitter: " + err.Error())
		}

		engineCfg := app.EngineConfig{
			MaxStalenessMs:      cfg.Execution.MaxStalenessMs,
			MaxBlockLag:         cfg.Execution.MaxBlockLag,
			DryRun:              cfg.Execution.DryRun,
			ConfirmationTimeout: cfg.Execution.ConfirmationTimeout,
			SpeedUpMultiplier:   cfg.Execution.SpeedUpMultiplier,
		}

		return app.NewEngine(
			engineCfg,
			executionDI.GetPlanner(sr),
			executionDI.GetBreaker(sr),
			ethadapter.NewCallSimulator(ethClient, encoder, log),
			submitter,
			executionDI.GetLedger(sr),
			registryDI.GetService(sr),
			ethadapter.NewNonceReader(ethClient),
			log,
		)
	})

	return nil
}

// Startup reconciles the nonce ledger against the chain before any
// submission is attempted.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	ledger := executionDI.GetLedger(mono.Services())
	from, err := walletAddress(mono.Config())
	if err != nil {
		return err
	}
	chainNonce, err := mono.EthClient().PendingNonceAt(ctx, from)
	if err != nil {
		return err
	}
	if err := ledger.Reconcile(ctx, chainNonce); err != nil {
		return err
	}
	mono.Logger().Info(ctx, "execution module started",
		"dry_run", mono.Config().Execution.DryRun,
		"chain_nonce", chainNonce,
	)
	return nil
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// walletAddress derives the submitting address from the configured signing
// key, the same key the submitter uses to sign every transaction.
func walletAddress(cfg *config.Config) (common.Address, error) {
	key, err := cfg.Execution.WalletPrivateKeyECDSA()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
