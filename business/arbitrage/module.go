// Package arbitrage implements the opportunity-detection bounded context:
// C4 groups pool snapshots into directed seeds, C5 sizes each seed's
// input, and C6 costs it into a submittable candidate.
package arbitrage

import (
	"context"
	"time"

	"github.com/fd1az/flashbot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/flashbot/business/arbitrage/di"
	gasDI "github.com/fd1az/flashbot/business/gas/di"
	registryDI "github.com/fd1az/flashbot/business/registry/di"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/di"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/monolith"
)

// Module implements the C4/C5/C6 bounded context.
type Module struct{}

// RegisterServices wires the detector, sizer, and estimator from
// configuration and the registry/gas contexts they depend on.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewDetector(cfg.Detector.DeltaThresholdBps, log)
	})

	di.RegisterToken(c, arbitrageDI.Sizer, func(sr di.ServiceRegistry) *app.Sizer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		sizerCfg := app.SizerConfig{
			XMin:          cfg.Detector.SizerXMinWeiBig(),
			XMax:          cfg.Detector.SizerXMaxWeiBig(),
			MaxIterations: cfg.Detector.SizerMaxIterations,
			ToleranceBps:  cfg.Detector.SizerToleranceBps,
			Timeout:       time.Duration(cfg.Detector.SizerTimeoutMs) * time.Millisecond,
			DefaultInput:  cfg.Detector.DefaultInputWeiBig(),
		}
		return app.NewSizer(sizerCfg, log)
	})

	di.RegisterToken(c, arbitrageDI.Estimator, func(sr di.ServiceRegistry) *app.Estimator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := registryDI.GetService(sr).Registry
		oracle := gasDI.GetOracle(sr)

		estimatorCfg := app.EstimatorConfig{
			AdversarialMoveBps: cfg.Detector.AdversarialMoveBps,
			FeeBufferFactor:    cfg.Detector.FeeBufferFactor,
			RiskMultiplier:     cfg.Detector.RiskMultiplier,
			MinNetProfitWei:    cfg.Detector.MinNetProfitWeiBig(),
			ExecutorAddress:    cfg.Chain.ExecutorAddress,
		}
		return app.NewEstimator(registry, oracle, estimatorCfg, log)
	})

	return nil
}

// Startup is a no-op; every dependency is already connected by the
// registry and gas modules' own Startup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "arbitrage module started")
	return nil
}

