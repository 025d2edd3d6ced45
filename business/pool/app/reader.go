package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/logger"
	"github.com/fd1az/flashbot/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/flashbot/business/pool/app"
	meterName  = "github.com/fd1az/flashbot/business/pool/app"
)

// ReaderConfig tunes the per-poll fan-out.
type ReaderConfig struct {
	PerPoolTimeout time.Duration // default 2x poll interval, capped at 5s
	MaxRetries     int           // consecutive failures before a pool goes stale
}

// DefaultReaderConfig returns sensible defaults for a 3s poll interval.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		PerPoolTimeout: 5 * time.Second,
		MaxRetries:     3,
	}
}

type poolHealth struct {
	consecutiveFailures int
	stale               bool
}

type readerMetrics struct {
	reads       metric.Int64Counter
	readErrors  metric.Int64Counter
	poolsStale  metric.Int64Gauge
	pollLatency metric.Float64Histogram
}

// Reader fetches the freshest PoolSnapshot for every registered pool each
// poll cycle, fanning out one RPC read per pool plus a single head-block
// query per cycle.
type Reader struct {
	rpc     RPC
	pools   []*domain.PoolDescriptor
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter
	cfg     ReaderConfig

	mu     sync.Mutex
	health map[common.Address]*poolHealth

	tracer  trace.Tracer
	metrics *readerMetrics
}

// PollResult is the output of a single poll cycle.
type PollResult struct {
	Snapshots []*domain.PoolSnapshot
	HeadBlock uint64
	Errors    map[common.Address]error
}

// NewReader constructs a Reader over the given pool set.
func NewReader(rpc RPC, pools []*domain.PoolDescriptor, log logger.LoggerInterface, limiter *ratelimit.Limiter, cfg ReaderConfig) (*Reader, error) {
	r := &Reader{
		rpc:     rpc,
		pools:   pools,
		logger:  log,
		limiter: limiter,
		cfg:     cfg,
		health:  make(map[common.Address]*poolHealth, len(pools)),
		tracer:  otel.Tracer(tracerName),
	}
	for _, p := range pools {
		r.health[p.Address] = &poolHealth{}
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	r.metrics = &readerMetrics{}

	r.metrics.reads, err = meter.Int64Counter("pool_reads_total", metric.WithDescription("Total pool reads attempted"))
	if err != nil {
		return err
	}
	r.metrics.readErrors, err = meter.Int64Counter("pool_read_errors_total", metric.WithDescription("Total pool read errors"))
	if err != nil {
		return err
	}
	r.metrics.poolsStale, err = meter.Int64Gauge("pool_stale_count", metric.WithDescription("Number of pools currently marked stale"))
	if err != nil {
		return err
	}
	r.metrics.pollLatency, err = meter.Float64Histogram("pool_poll_latency_ms", metric.WithDescription("Poll cycle latency"), metric.WithUnit("ms"))
	return err
}

type poolReadOutcome struct {
	snapshot *domain.PoolSnapshot
	err      error
	addr     common.Address
}

// Poll executes one poll cycle: a single head-block query, then one
// concurrent read per pool bounded by cfg.PerPoolTimeout. Per-pool errors
// are collected, never aborting the cycle.
func (r *Reader) Poll(ctx context.Context) (*PollResult, error) {
	ctx, span := r.tracer.Start(ctx, "pool.poll")
	defer span.End()
	start := time.Now()

	headBlock, err := r.rpc.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "head block query failed")
		return nil, err
	}

	outcomes := make(chan poolReadOutcome, len(r.pools))
	var wg sync.WaitGroup
	for _, pool := range r.pools {
		wg.Add(1)
		go func(pool *domain.PoolDescriptor) {
			defer wg.Done()
			outcomes <- r.readOne(ctx, pool, headBlock)
		}(pool)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &PollResult{HeadBlock: headBlock, Errors: make(map[common.Address]error)}
	for o := range outcomes {
		r.metrics.reads.Add(ctx, 1)
		if o.err != nil {
			r.metrics.readErrors.Add(ctx, 1)
			result.Errors[o.addr] = o.err
			continue
		}
		if o.snapshot != nil {
			result.Snapshots = append(result.Snapshots, o.snapshot)
		}
	}

	r.mu.Lock()
	staleCount := int64(0)
	for _, h := range r.health {
		if h.stale {
			staleCount++
		}
	}
	r.mu.Unlock()
	r.metrics.poolsStale.Record(ctx, staleCount)
	r.metrics.pollLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	span.SetAttributes(
		attribute.Int("snapshots", len(result.Snapshots)),
		attribute.Int("errors", len(result.Errors)),
		attribute.Int64("head_block", int64(headBlock)),
	)
	span.SetStatus(codes.Ok, "polled")
	return result, nil
}

func (r *Reader) readOne(ctx context.Context, pool *domain.PoolDescriptor, headBlock uint64) poolReadOutcome {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.recordFailure(pool, err)
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, r.cfg.PerPoolTimeout)
	defer cancel()

	var (
		state       domain.State
		blockNumber uint64
		err         error
	)

	switch pool.DexKind {
	case domain.DexKindV2Like:
		var v2 domain.V2State
		v2, blockNumber, err = r.rpc.ReadV2(readCtx, pool)
		state = v2
	case domain.DexKindV3Like, domain.DexKindLBLike:
		var v3 domain.V3State
		v3, blockNumber, err = r.rpc.ReadV3(readCtx, pool)
		state = v3
	default:
		err = context.DeadlineExceeded
	}

	if err != nil {
		return r.recordFailure(pool, err)
	}

	r.mu.Lock()
	h := r.health[pool.Address]
	h.consecutiveFailures = 0
	h.stale = false
	r.mu.Unlock()

	if blockNumber == 0 {
		blockNumber = headBlock
	}

	snapshot := &domain.PoolSnapshot{
		Pool:         pool,
		BlockNumber:  blockNumber,
		ObservedAtMs: time.Now().UnixMilli(),
		State:        state,
	}
	return poolReadOutcome{snapshot: snapshot, addr: pool.Address}
}

func (r *Reader) recordFailure(pool *domain.PoolDescriptor, err error) poolReadOutcome {
	r.mu.Lock()
	h := r.health[pool.Address]
	h.consecutiveFailures++
	if h.consecutiveFailures >= r.cfg.MaxRetries {
		h.stale = true
	}
	stale := h.stale
	r.mu.Unlock()

	r.logger.Warn(context.Background(), "pool read failed",
		"pool", pool.Label, "address", pool.Address.Hex(), "error", err, "stale", stale)

	return poolReadOutcome{err: err, addr: pool.Address}
}

// IsStale reports whether a pool is currently excluded from groupings.
func (r *Reader) IsStale(addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.health[addr]
	return ok && h.stale
}
