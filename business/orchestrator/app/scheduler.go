package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbitrageapp "github.com/fd1az/flashbot/business/arbitrage/app"
	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	executionapp "github.com/fd1az/flashbot/business/execution/app"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
	poolapp "github.com/fd1az/flashbot/business/pool/app"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	storeapp "github.com/fd1az/flashbot/business/store/app"
	"github.com/fd1az/flashbot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashbot/business/orchestrator/app"
	meterName  = "github.com/fd1az/flashbot/business/orchestrator/app"
)

// Config tunes the scheduler's tick cadence and the values it needs to
// drive the execution engine that the registry/execution contexts don't
// already carry.
type Config struct {
	PollInterval time.Duration
	// ProbeInput is the fixed amount BuildSteps uses to shape placeholder
	// calldata for the gas estimate BuildProfitFunction needs before a
	// seed has been sized; the calldata's shape (and so its gas cost)
	// does not depend on the amount word, so any in-range probe works.
	ProbeInput      *big.Int
	ExecutorAddress string
	WalletAddress   common.Address
}

// schedulerMetrics holds the OTEL metric instruments the scheduler emits
// alongside its structured log events.
type schedulerMetrics struct {
	ticks                 metric.Int64Counter
	seedsDetected         metric.Int64Counter
	opportunitiesFound    metric.Int64Counter
	opportunitiesRejected metric.Int64Counter
	tickLatency           metric.Float64Histogram
}

// Scheduler implements C11: it owns the tick loop that drives a pool poll
// through detection, sizing, cost estimation, planning, and execution, one
// seed at a time, persisting every terminal result to the trade store.
type Scheduler struct {
	cfg Config

	reader    *poolapp.Reader
	detector  *arbitrageapp.Detector
	sizer     *arbitrageapp.Sizer
	estimator *arbitrageapp.Estimator
	gas       gasapp.Oracle
	chain     ChainView
	encoder   executionapp.Encoder
	engine    *executionapp.Engine
	breaker   *executionapp.Breaker
	store     *storeapp.Service

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *schedulerMetrics

	mu      sync.Mutex
	wasOpen bool

	stop chan struct{}
	done chan struct{}
}

// NewScheduler assembles a Scheduler around every pipeline stage it
// drives. Every argument here is a stage this bounded context composes
// rather than reimplements, matching the Design Note's "centralize
// ownership, don't duplicate state" guidance.
func NewScheduler(
	cfg Config,
	reader *poolapp.Reader,
	detector *arbitrageapp.Detector,
	sizer *arbitrageapp.Sizer,
	estimator *arbitrageapp.Estimator,
	gas gasapp.Oracle,
	chain ChainView,
	encoder executionapp.Encoder,
	engine *executionapp.Engine,
	breaker *executionapp.Breaker,
	store *storeapp.Service,
	log logger.LoggerInterface,
) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		reader:    reader,
		detector:  detector,
		sizer:     sizer,
		estimator: estimator,
		gas:       gas,
		chain:     chain,
		encoder:   encoder,
		engine:    engine,
		breaker:   breaker,
		store:     store,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if err := s.initMetrics(); err != nil {
		log.Error(context.Background(), "failed to initialize orchestrator metrics", "error", err)
	}
	return s
}

func (s *Scheduler) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	s.metrics = &schedulerMetrics{}

	s.metrics.ticks, err = meter.Int64Counter("orchestrator_ticks_total",
		metric.WithDescription("Total number of poll ticks run"))
	if err != nil {
		return err
	}
	s.metrics.seedsDetected, err = meter.Int64Counter("orchestrator_seeds_detected_total",
		metric.WithDescription("Total number of directed seeds emitted by the detector"))
	if err != nil {
		return err
	}
	s.metrics.opportunitiesFound, err = meter.Int64Counter("orchestrator_opportunities_found_total",
		metric.WithDescription("Total number of costed candidates that cleared every gate"))
	if err != nil {
		return err
	}
	s.metrics.opportunitiesRejected, err = meter.Int64Counter("orchestrator_opportunities_rejected_total",
		metric.WithDescription("Total number of costed candidates rejected before submission"))
	if err != nil {
		return err
	}
	s.metrics.tickLatency, err = meter.Float64Histogram("orchestrator_tick_latency_ms",
		metric.WithDescription("Wall-clock time to run one poll tick"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 2500, 5000))
	if err != nil {
		return err
	}
	return nil
}

// Start begins the tick loop in the background and returns immediately.
// time.Ticker itself enforces the spec's backpressure rule: if tick takes
// longer than PollInterval, the ticker drops the missed fire rather than
// queuing it, so two ticks never run concurrently in this single goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the tick loop to exit after its current tick finishes. Done
// closes once the loop has actually returned.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// Done reports when the tick loop has exited, for a caller waiting out a
// shutdown grace period.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info(ctx, "orchestrator scheduler started", "poll_interval", s.cfg.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "orchestrator scheduler stopping", "reason", ctx.Err())
			return
		case <-s.stop:
			s.logger.Info(ctx, "orchestrator scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one full pass: a single C2 poll, then C4's seeds each driven
// sequentially through C5-C8 and persisted via C10. Seeds are processed
// one at a time, never concurrently, so the nonce ledger's ordering
// guarantee holds without an explicit lock at this layer.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "orchestrator.tick")
	defer span.End()
	defer func() {
		elapsedMs := float64(time.Since(start).Microseconds()) / 1000
		s.metrics.tickLatency.Record(ctx, elapsedMs)
	}()
	s.metrics.ticks.Add(ctx, 1)

	result, err := s.reader.Poll(ctx)
	if err != nil {
		s.logger.Error(ctx, "pool poll failed", "error", err)
		return
	}
	for addr, perr := range result.Errors {
		s.logger.Warn(ctx, "pool read errored", "pool", addr.Hex(), "error", perr)
	}

	s.emit(ctx, EventPriceUpdate, "head_block", result.HeadBlock, "snapshots", len(result.Snapshots), "pool_errors", len(result.Errors))

	seeds, belowThreshold := s.detector.Detect(ctx, result.Snapshots)
	s.metrics.seedsDetected.Add(ctx, int64(len(seeds)))
	span.SetAttributes(
		attribute.Int64("head_block", int64(result.HeadBlock)),
		attribute.Int("snapshots", len(result.Snapshots)),
		attribute.Int("seeds", len(seeds)),
		attribute.Int("below_threshold", len(belowThreshold)),
	)

	s.emitBelowThreshold(ctx, belowThreshold)

	for _, seed := range seeds {
		s.processSeed(ctx, seed)
	}

	s.reportBreakerTransition(ctx)
	s.emitStats(ctx)
}

// emitBelowThreshold turns every pair the detector couldn't clear the
// delta_bps threshold for into an opportunity_rejected event, without
// driving any of them through C5-C8: they never became seeds in the first
// place, so there's nothing left to size or cost.
func (s *Scheduler) emitBelowThreshold(ctx context.Context, seeds []arbitragedomain.Seed) {
	for _, seed := range seeds {
		s.metrics.opportunitiesRejected.Add(ctx, 1)
		s.emit(ctx, EventOpportunityRejected, "path", seed.PathLabel(), "reason", arbitragedomain.RejectBelowThreshold, "delta_bps", seed.DeltaBps)
	}
}

// processSeed drives a single detected seed through C5 (sizing), C6 (cost
// estimation), and, if it clears every gate, C7/C8 (planning and
// execution), finishing by persisting the terminal outcome to C10
// regardless of which branch it took.
func (s *Scheduler) processSeed(ctx context.Context, seed arbitragedomain.Seed) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.process_seed")
	defer span.End()

	provider := s.chain.PreferredFlashLoanProvider()

	probeSteps := s.estimator.BuildSteps(seed, uint256FromBig(s.cfg.ProbeInput))
	probeCalldata, err := s.encoder.EncodeExecuteArbitrage(provider.Address, probeSteps[0].TokenIn, s.cfg.ProbeInput, probeSteps)
	if err != nil {
		s.logger.Error(ctx, "failed to encode probe calldata", "error", err, "pair", seed.Pair)
		return
	}

	profitFn, gc, err := s.estimator.BuildProfitFunction(ctx, seed, probeCalldata)
	if err != nil {
		s.logger.Warn(ctx, "gas estimate for profit function failed, skipping seed", "error", err, "pair", seed.Pair)
		return
	}

	sizeResult := s.sizer.Size(ctx, profitFn)

	candidate, err := s.estimator.Estimate(ctx, seed, sizeResult.Input, sizeResult.FellBack, gc)
	if err != nil {
		s.logger.Error(ctx, "cost estimation failed", "error", err, "pair", seed.Pair)
		return
	}

	if candidate.Rejected {
		s.metrics.opportunitiesRejected.Add(ctx, 1)
		s.emit(ctx, EventOpportunityRejected, "path", candidate.PathLabel(), "reason", candidate.RejectReason)
		return
	}

	s.metrics.opportunitiesFound.Add(ctx, 1)
	s.emit(ctx, EventOpportunityFound,
		"path", candidate.PathLabel(),
		"input_wei", candidate.Input.ToBig().String(),
		"net_profit_wei", candidate.NetProfit.Raw().String(),
		"sizer_fell_back", candidate.SizerFellBack,
	)

	planCalldata, err := s.encoder.EncodeExecuteArbitrage(provider.Address, candidate.Steps[0].TokenIn, candidate.Input.ToBig(), candidate.Steps)
	if err != nil {
		s.logger.Error(ctx, "failed to encode execution calldata", "error", err, "path", candidate.PathLabel())
		return
	}
	estimate, err := s.gas.EstimateCost(ctx, s.cfg.ExecutorAddress, planCalldata, len(candidate.Steps))
	if err != nil {
		s.logger.Warn(ctx, "gas estimate for execution plan failed, skipping seed", "error", err, "path", candidate.PathLabel())
		return
	}

	s.emit(ctx, EventSubmitted, "path", candidate.PathLabel())
	result := s.engine.Execute(ctx, candidate, provider, estimate, s.cfg.WalletAddress)
	s.emitResult(ctx, candidate, result)

	if err := s.store.RecordResult(ctx, candidate, result); err != nil {
		s.logger.Error(ctx, "failed to persist trade outcome", "error", err, "path", candidate.PathLabel())
	}
}

// emitResult logs the terminal event a candidate's execution produced. The
// result's own Status() already disambiguates the variant for the trade
// store; this only needs to pick the matching event name and a few fields
// worth surfacing in the log line.
func (s *Scheduler) emitResult(ctx context.Context, candidate *arbitragedomain.Candidate, result executiondomain.Result) {
	path := candidate.PathLabel()
	switch result.Status() {
	case "confirmed":
		s.emit(ctx, EventConfirmed, "path", path)
	case "reverted":
		s.emit(ctx, EventReverted, "path", path)
	case "simulation_reverted":
		s.emit(ctx, EventSimulationFailed, "path", path)
	case "stale_aborted":
		s.emit(ctx, EventStaleAborted, "path", path)
	case "circuit_breaker_open":
		s.emit(ctx, EventPaused, "path", path)
	default:
		// dry_run and failed: logged plainly rather than folded into one
		// of the eleven canonical events. Dry-run never reaches real
		// execution; failed is a transport-level defect, not a trading
		// decision worth its own event name.
		s.logger.Info(ctx, "execution result", "path", path, "status", result.Status())
	}
}

// reportBreakerTransition emits paused/resumed exactly once per state
// change, rather than once per tick while the breaker sits open.
func (s *Scheduler) reportBreakerTransition(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := s.breaker.Open()
	if open == s.wasOpen {
		return
	}
	s.wasOpen = open
	if open {
		s.emit(ctx, EventPaused, "consecutive_failures", s.breaker.ConsecutiveFailures())
	} else {
		s.emit(ctx, EventResumed)
	}
}

func (s *Scheduler) emitStats(ctx context.Context) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to read trade store stats", "error", err)
		return
	}
	s.emit(ctx, EventStats,
		"total_attempted", stats.TotalAttempted,
		"net_profit_total_wei", stats.NetProfitTotal.String(),
		"win_rate", stats.WinRate.String(),
	)
}

func (s *Scheduler) emit(ctx context.Context, name EventName, kv ...any) {
	fields := append([]any{"event", string(name)}, kv...)
	s.logger.Info(ctx, string(name), fields...)
}

// uint256FromBig converts the configured probe amount once per seed. The
// probe is validated to fit 256 bits at configuration-load time, so an
// overflow here would mean a configuration defect rather than a runtime
// one; zero is a safe, inert fallback that simply yields a zero-value
// placeholder swap step.
func uint256FromBig(v *big.Int) *pooldomain.Uint256 {
	u := new(pooldomain.Uint256)
	if overflow := u.SetFromBig(v); overflow {
		return new(pooldomain.Uint256)
	}
	return u
}
