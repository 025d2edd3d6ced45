// Package main is the entry point for the flash-loan arbitrage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/flashbot/business/arbitrage"
	"github.com/fd1az/flashbot/business/execution"
	"github.com/fd1az/flashbot/business/gas"
	"github.com/fd1az/flashbot/business/orchestrator"
	orchestratorDI "github.com/fd1az/flashbot/business/orchestrator/di"
	"github.com/fd1az/flashbot/business/pool"
	"github.com/fd1az/flashbot/business/registry"
	"github.com/fd1az/flashbot/business/store"
	storeApp "github.com/fd1az/flashbot/business/store/app"
	"github.com/fd1az/flashbot/business/store/infra/jsonl"
	"github.com/fd1az/flashbot/internal/apm"
	"github.com/fd1az/flashbot/internal/config"
	"github.com/fd1az/flashbot/internal/health"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/metrics"
	"github.com/fd1az/flashbot/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes, per the CLI surface contract: 0 normal, 1 fatal config or
// invariant violation, 2 RPC unreachable at startup, 130 on SIGINT.
const (
	exitOK             = 0
	exitConfigFatal    = 1
	exitRPCUnreachable = 2
	exitInterrupted    = 130
)

func main() {
	_ = godotenv.Load()

	args := os.Args[1:]
	cmdName := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmdName = args[0]
		args = args[1:]
	}

	var code int
	switch cmdName {
	case "run":
		code = runCommand(args)
	case "report":
		code = reportCommand(args)
	case "version":
		fmt.Printf("flashbot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		code = exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want \"run\" or \"report\")\n", cmdName)
		code = exitConfigFatal
	}
	os.Exit(code)
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	dryRun := fs.Bool("dry-run", false, "force dry-run mode regardless of config")
	chainID := fs.Uint64("chain", 0, "override the configured chain ID")
	if err := fs.Parse(args); err != nil {
		return exitConfigFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return exitConfigFatal
	}
	if *dryRun {
		cfg.Execution.DryRun = true
	}
	if *chainID != 0 {
		cfg.Chain.ChainID = *chainID
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(context.Background(), "starting flash-loan arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Execution.DryRun,
		"chain_id", cfg.Chain.ChainID,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exitCode := exitOK
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn(ctx, "received shutdown signal", "signal", sig.String())
		if sig == syscall.SIGINT {
			exitCode = exitInterrupted
		}
		cancel()
	}()

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to create monolith", "error", err)
		return exitRPCUnreachable
	}
	defer mono.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = mono.EthClient().ChainID(dialCtx)
	dialCancel()
	if err != nil {
		log.Error(ctx, "RPC endpoint unreachable at startup", "error", err, "url", cfg.Chain.HTTPURL)
		return exitRPCUnreachable
	}

	// Registration order matters: every later module resolves an earlier
	// one's DI token eagerly while assembling its own services.
	modules := []monolith.Module{
		&registry.Module{},
		&gas.Module{},
		&pool.Module{},
		&arbitrage.Module{},
		&execution.Module{},
		&store.Module{},
		&orchestrator.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		log.Error(ctx, "failed to register modules", "error", err)
		return exitConfigFatal
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		log.Error(ctx, "failed to start modules", "error", err)
		return exitConfigFatal
	}

	<-ctx.Done()

	scheduler := orchestratorDI.GetScheduler(mono.Services())
	scheduler.Stop()
	select {
	case <-scheduler.Done():
	case <-time.After(10 * time.Second):
		log.Warn(context.Background(), "timed out waiting for scheduler to finish its current tick")
	}

	log.Info(context.Background(), "shutdown complete")
	return exitCode
}

func reportCommand(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	last := fs.Int("last", 20, "number of most recent outcomes to print")
	if err := fs.Parse(args); err != nil {
		return exitConfigFatal
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return exitConfigFatal
	}

	log := logger.New(os.Stderr, logger.LevelError, cfg.App.Name, nil)
	ledger, err := jsonl.New(cfg.Store.Path, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open trade store at %s: %v\n", cfg.Store.Path, err)
		return exitConfigFatal
	}
	service := storeApp.NewService(ledger, func() int64 { return time.Now().UnixMilli() }, log)

	ctx := context.Background()
	stats, err := service.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to compute stats: %v\n", err)
		return exitConfigFatal
	}

	fmt.Printf("trades: %d  win_rate: %s\n", stats.TotalAttempted, stats.WinRate.String())
	fmt.Printf("gross_profit: %s  gas_cost: %s  l1_data_fee: %s  revert_cost: %s  net_profit: %s\n",
		stats.GrossProfitTotal, stats.GasCostTotal, stats.L1DataFeeTotal, stats.RevertCostTotal, stats.NetProfitTotal)
	for status, count := range stats.CountsByStatus {
		fmt.Printf("  %-20s %d\n", status, count)
	}

	outcomes, err := service.Last(ctx, *last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to read last outcomes: %v\n", err)
		return exitConfigFatal
	}
	fmt.Printf("\nlast %d outcomes:\n", len(outcomes))
	for _, o := range outcomes {
		fmt.Printf("%s  block=%d  path=%s  status=%-20s  net_profit=%s  tx=%s\n",
			time.UnixMilli(o.TimestampMs).UTC().Format(time.RFC3339), o.BlockNumber, o.PathLabel, o.Status, o.NetProfit, o.TxHash)
	}

	return exitOK
}
