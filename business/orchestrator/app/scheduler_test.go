package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	executionapp "github.com/fd1az/flashbot/business/execution/app"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func noopLogger() logger.LoggerInterface {
	return logger.New(discardWriter{}, logger.LevelError, "test", nil)
}

func testCandidate() *arbitragedomain.Candidate {
	return &arbitragedomain.Candidate{
		Seed: arbitragedomain.Seed{
			BuyLeg:  &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolA"}},
			SellLeg: &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolB"}},
		},
	}
}

func TestUint256FromBig_OverflowFallsBackToZero(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 300) // 2^300, past uint256's 256-bit range
	got := uint256FromBig(huge)
	if !got.IsZero() {
		t.Fatalf("uint256FromBig(overflow) = %s, want zero-value fallback", got.ToBig())
	}
}

func TestUint256FromBig_RoundTrips(t *testing.T) {
	want := big.NewInt(1_000_000_000_000_000_000)
	got := uint256FromBig(want)
	if got.ToBig().Cmp(want) != 0 {
		t.Fatalf("uint256FromBig roundtrip = %s, want %s", got.ToBig(), want)
	}
}

func TestReportBreakerTransition_EmitsOncePerFlip(t *testing.T) {
	breaker := executionapp.NewBreaker(1)
	s := &Scheduler{breaker: breaker, logger: noopLogger()}

	// Not yet tripped: no transition to report.
	s.reportBreakerTransition(context.Background())
	if s.wasOpen {
		t.Fatal("wasOpen should still be false before any failure")
	}

	breaker.RecordFailure() // trips at maxConsecutive=1
	s.reportBreakerTransition(context.Background())
	if !s.wasOpen {
		t.Fatal("wasOpen should flip true once the breaker trips")
	}

	// Calling again while still open must not panic or flip state back.
	s.reportBreakerTransition(context.Background())
	if !s.wasOpen {
		t.Fatal("wasOpen should remain true while the breaker stays open")
	}

	breaker.Resume()
	s.reportBreakerTransition(context.Background())
	if s.wasOpen {
		t.Fatal("wasOpen should flip false once the breaker resumes")
	}
}

func TestEmitBelowThreshold_EmitsOnePerSeedAndCountsMetric(t *testing.T) {
	s := &Scheduler{logger: noopLogger()}
	if err := s.initMetrics(); err != nil {
		t.Fatalf("initMetrics() error: %v", err)
	}

	seeds := []arbitragedomain.Seed{
		{
			BuyLeg:  &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolA"}},
			SellLeg: &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolB"}},
			DeltaBps: 2,
		},
		{
			BuyLeg:  &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolC"}},
			SellLeg: &pooldomain.PoolSnapshot{Pool: &pooldomain.PoolDescriptor{Label: "poolD"}},
			DeltaBps: 3,
		},
	}

	// Neither call should panic: an empty slice is the common case (no
	// sub-threshold pairs this tick), and a populated one must emit once
	// per seed without touching anything beyond the logger and metrics.
	s.emitBelowThreshold(context.Background(), nil)
	s.emitBelowThreshold(context.Background(), seeds)
}

func TestEmitResult_DoesNotPanicForEveryVariant(t *testing.T) {
	s := &Scheduler{logger: noopLogger()}
	candidate := testCandidate()

	results := []executiondomain.Result{
		executiondomain.Confirmed{TxHash: common.HexToHash("0x1")},
		executiondomain.Reverted{TxHash: common.HexToHash("0x2")},
		executiondomain.SimulationReverted{},
		executiondomain.Failed{Reason: "boom"},
		executiondomain.StaleAborted{},
		executiondomain.CircuitBreakerOpen{},
		executiondomain.DryRun{SimulatedGrossProfitWei: big.NewInt(1)},
	}
	for _, r := range results {
		s.emitResult(context.Background(), candidate, r)
	}
}
