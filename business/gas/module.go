// Package gas implements the C3 gas-cost estimation bounded context,
// choosing between the Arbitrum precompile-based oracle and the generic
// EVM oracle based on chain configuration.
package gas

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashbot/business/gas/app"
	gasDI "github.com/fd1az/flashbot/business/gas/di"
	"github.com/fd1az/flashbot/business/gas/infra/arbitrum"
	"github.com/fd1az/flashbot/business/gas/infra/generic"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the gas estimation bounded context.
type Module struct{}

// RegisterServices wires the oracle implementation selected by
// chain.gas_model.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, gasDI.Oracle, func(sr di.ServiceRegistry) app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		if cfg.Chain.GasModel == "arbitrum" {
			oracle, err := arbitrum.NewOracle(ethClient, cfg.Chain.ArbGasInfoPrecompileHex(), log)
			if err != nil {
				panic("failed to create arbitrum gas oracle: " + err.Error())
			}
			return oracle
		}
		return generic.NewOracle(ethClient, cfg.Chain.MaxGasPriceWeiBig(), log)
	})
	return nil
}

// Startup is a no-op; the oracle has no long-lived connection beyond the
// shared ethclient.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "gas module started", "gas_model", mono.Config().Chain.GasModel)
	return nil
}
