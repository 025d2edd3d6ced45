// Package pool implements the pool-reading bounded context: it fans out raw
// on-chain reads across the registered pool set and exposes the freshest
// PoolSnapshot per pool to the arbitrage context.
package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashbot/business/pool/app"
	poolDI "github.com/fd1az/flashbot/business/pool/di"
	"github.com/fd1az/flashbot/business/pool/domain"
	poolEthereum "github.com/fd1az/flashbot/business/pool/infra/ethereum"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
	"github.com/fd1az/flashbot/internal/ratelimit"
)

// Module implements the pool-reading bounded context.
type Module struct{}

// RegisterServices registers the pool RPC adapter and Reader service.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, poolDI.RPC, func(sr di.ServiceRegistry) app.RPC {
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		rpc, err := poolEthereum.NewRPC(ethClient)
		if err != nil {
			panic("failed to create pool rpc adapter: " + err.Error())
		}
		return rpc
	})

	di.RegisterToken(c, poolDI.Reader, func(sr di.ServiceRegistry) *app.Reader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		rpc := poolDI.GetRPC(sr)

		descriptors, err := pools(cfg.Chain.Pools)
		if err != nil {
			panic("failed to build pool descriptors: " + err.Error())
		}

		limiter := ratelimit.New(cfg.Monitor.RPCRequestsPerMinute)

		readerCfg := app.ReaderConfig{
			PerPoolTimeout: cfg.Monitor.PerPoolTimeout,
			MaxRetries:     cfg.Monitor.MaxRetries,
		}
		reader, err := app.NewReader(rpc, descriptors, log, limiter, readerCfg)
		if err != nil {
			panic("failed to create pool reader: " + err.Error())
		}
		return reader
	})

	return nil
}

// Startup validates the pool module wired cleanly; there is no long-lived
// connection to establish beyond the shared ethclient.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	reader := poolDI.GetReader(mono.Services())
	log.Info(ctx, "pool module started", "pools", reader != nil)
	return nil
}

// pools translates the config's pool set into validated domain descriptors.
func pools(cfgPools []config.PoolConfig) ([]*domain.PoolDescriptor, error) {
	descriptors := make([]*domain.PoolDescriptor, 0, len(cfgPools))
	for _, p := range cfgPools {
		descriptor, err := domain.NewPoolDescriptor(
			p.Label,
			domain.DexKind(p.DexKind),
			p.AddressHex(),
			p.Token0Hex(),
			p.Token1Hex(),
			p.Decimals0,
			p.Decimals1,
		)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", p.Label, err)
		}
		if p.FeeTier != 0 {
			feeTier := p.FeeTier
			descriptor.FeeTier = &feeTier
		}
		if p.Router != "" {
			router := config.PoolConfig{Address: p.Router}.AddressHex()
			descriptor.Router = &router
		}
		if descriptor.DexKind == domain.DexKindLBLike {
			descriptor.VariableFeeRisk = true
			descriptor.FeeManipulationRisk = true
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}
