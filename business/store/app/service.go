package app

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	"github.com/fd1az/flashbot/business/store/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

// Store is C10's port: an append-only, crash-safe outcome ledger plus the
// read side the report CLI and stats event use. Append enforces I2 and is
// expected to be fatal (panic, not return) on a mismatch, matching the
// spec's "refuses to write inconsistent records" wording; Stats and Last
// are read-only and safe to call from a separate handle.
type Store interface {
	Append(ctx context.Context, outcome domain.TradeOutcome) error
	Stats(ctx context.Context) (Stats, error)
	Last(ctx context.Context, n int) ([]domain.TradeOutcome, error)
}

// Stats summarizes every outcome persisted so far: totals by bucket,
// counts by terminal status, the observation window, and the win rate
// used in the periodic "stats" event and the report CLI.
type Stats struct {
	TotalAttempted   int
	CountsByStatus   map[domain.Status]int
	GrossProfitTotal *big.Int
	GasCostTotal     *big.Int
	L1DataFeeTotal   *big.Int
	RevertCostTotal  *big.Int
	NetProfitTotal   *big.Int
	FirstTimestampMs int64
	LastTimestampMs  int64
	// WinRate is confirmed_profitable / total_attempted, zero when nothing
	// has been attempted yet.
	WinRate decimal.Decimal
}

// Summarize computes Stats over a slice of outcomes. It is exported so
// both the jsonl store (in-memory recompute) and tests can share the same
// aggregation logic rather than duplicating the loop.
func Summarize(outcomes []domain.TradeOutcome) Stats {
	stats := Stats{
		CountsByStatus:   map[domain.Status]int{},
		GrossProfitTotal: big.NewInt(0),
		GasCostTotal:     big.NewInt(0),
		L1DataFeeTotal:   big.NewInt(0),
		RevertCostTotal:  big.NewInt(0),
		NetProfitTotal:   big.NewInt(0),
	}

	confirmedProfitable := 0
	for i, o := range outcomes {
		stats.TotalAttempted++
		stats.CountsByStatus[o.Status]++
		stats.GrossProfitTotal.Add(stats.GrossProfitTotal, o.GrossProfit)
		stats.GasCostTotal.Add(stats.GasCostTotal, o.GasCost)
		stats.L1DataFeeTotal.Add(stats.L1DataFeeTotal, o.L1DataFee)
		stats.RevertCostTotal.Add(stats.RevertCostTotal, o.RevertCost)
		stats.NetProfitTotal.Add(stats.NetProfitTotal, o.NetProfit)

		if i == 0 || o.TimestampMs < stats.FirstTimestampMs {
			stats.FirstTimestampMs = o.TimestampMs
		}
		if o.TimestampMs > stats.LastTimestampMs {
			stats.LastTimestampMs = o.TimestampMs
		}
		if o.Status == domain.StatusConfirmed && o.NetProfit.Sign() > 0 {
			confirmedProfitable++
		}
	}

	if stats.TotalAttempted > 0 {
		stats.WinRate = decimal.NewFromInt(int64(confirmedProfitable)).
			DivRound(decimal.NewFromInt(int64(stats.TotalAttempted)), 4)
	}
	return stats
}

// Service wraps a Store with the candidate-to-outcome conversion so C11
// only ever deals in candidates and Results, never in the persisted
// schema directly.
type Service struct {
	store  Store
	nowMs  func() int64
	logger logger.LoggerInterface
}

// NewService constructs a Service around a Store.
func NewService(store Store, nowMs func() int64, log logger.LoggerInterface) *Service {
	return &Service{store: store, nowMs: nowMs, logger: log}
}

// RecordResult converts candidate and the engine's terminal result into a
// TradeOutcome and appends it.
func (s *Service) RecordResult(ctx context.Context, candidate *arbitragedomain.Candidate, result executiondomain.Result) error {
	outcome := BuildOutcome(candidate, result, s.nowMs())
	if err := s.store.Append(ctx, outcome); err != nil {
		s.logger.Error(ctx, "trade store append failed", "error", err, "path", outcome.PathLabel)
		return err
	}
	return nil
}

// Stats returns the current aggregate stats.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

// Last returns the n most recently persisted outcomes, reverse
// chronological.
func (s *Service) Last(ctx context.Context, n int) ([]domain.TradeOutcome, error) {
	return s.store.Last(ctx, n)
}
