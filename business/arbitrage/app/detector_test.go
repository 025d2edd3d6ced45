package app

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

func uint256From(v uint64) *pooldomain.Uint256 {
	return new(pooldomain.Uint256).SetUint64(v)
}

// tokenUnits returns n whole units of an 18-decimal token, in wei.
func tokenUnits(n uint64) *pooldomain.Uint256 {
	return new(pooldomain.Uint256).Mul(uint256From(n), uint256From(1_000_000_000_000_000_000))
}

// feeTier is in Uniswap's native parts-per-million granularity (500 =
// 0.05%), matching PoolDescriptor.FeeTier. Reserves are given in whole
// 18-decimal token units.
func v2Snapshot(t *testing.T, label string, addr common.Address, reserve0, reserve1 uint64, feeTier uint32) *pooldomain.PoolSnapshot {
	t.Helper()
	token0 := common.HexToAddress("0x0000000000000000000000000000000000aaaa")
	token1 := common.HexToAddress("0x0000000000000000000000000000000000bbbb")

	pool, err := pooldomain.NewPoolDescriptor(label, pooldomain.DexKindV2Like, addr, token0, token1, 18, 18)
	if err != nil {
		t.Fatalf("NewPoolDescriptor: %v", err)
	}
	if feeTier > 0 {
		fee := feeTier
		pool.FeeTier = &fee
	}
	return &pooldomain.PoolSnapshot{
		Pool:         pool,
		BlockNumber:  1,
		ObservedAtMs: 1,
		State: pooldomain.V2State{
			Reserve0: tokenUnits(reserve0),
			Reserve1: tokenUnits(reserve1),
		},
	}
}

func noopLogger() logger.LoggerInterface {
	return logger.New(discardWriter{}, logger.LevelError, "test", nil)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name                   string
		thresholdBps           uint32
		reserve0A              uint64
		reserve1A              uint64
		reserve0B              uint64
		reserve1B              uint64
		wantSeedCount          int
		wantBelowThresholdCount int
	}{
		{
			name:          "price_divergence_clears_threshold",
			thresholdBps:  50,
			reserve0A:     1_000,
			reserve1A:     3_000_000,
			reserve0B:     1_000,
			reserve1B:     3_060_000,
			wantSeedCount: 1,
		},
		{
			name:                    "identical_pools_no_edge",
			thresholdBps:            1,
			reserve0A:               1_000,
			reserve1A:               3_000_000,
			reserve0B:               1_000,
			reserve1B:               3_000_000,
			wantSeedCount:           0,
			wantBelowThresholdCount: 1,
		},
		{
			name:                    "small_divergence_below_threshold",
			thresholdBps:            1000,
			reserve0A:               1_000,
			reserve1A:               3_000_000,
			reserve0B:               1_000,
			reserve1B:               3_018_000,
			wantSeedCount:           0,
			wantBelowThresholdCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addrA := common.HexToAddress("0x00000000000000000000000000000000000001")
			addrB := common.HexToAddress("0x00000000000000000000000000000000000002")
			snapA := v2Snapshot(t, "poolA", addrA, tt.reserve0A, tt.reserve1A, 500)
			snapB := v2Snapshot(t, "poolB", addrB, tt.reserve0B, tt.reserve1B, 3000)

			d := NewDetector(tt.thresholdBps, noopLogger())
			seeds, belowThreshold := d.Detect(context.Background(), []*pooldomain.PoolSnapshot{snapA, snapB})

			if len(seeds) != tt.wantSeedCount {
				t.Fatalf("Detect() returned %d seeds, want %d", len(seeds), tt.wantSeedCount)
			}
			if len(belowThreshold) != tt.wantBelowThresholdCount {
				t.Fatalf("Detect() returned %d below-threshold seeds, want %d", len(belowThreshold), tt.wantBelowThresholdCount)
			}
		})
	}
}

func TestDetector_Detect_RequiresTwoSnapshots(t *testing.T) {
	addrA := common.HexToAddress("0x00000000000000000000000000000000000001")
	snapA := v2Snapshot(t, "poolA", addrA, 1000, 3000, 500)

	d := NewDetector(1, noopLogger())
	seeds, belowThreshold := d.Detect(context.Background(), []*pooldomain.PoolSnapshot{snapA})

	if len(seeds) != 0 {
		t.Fatalf("Detect() with single snapshot returned %d seeds, want 0", len(seeds))
	}
	if len(belowThreshold) != 0 {
		t.Fatalf("Detect() with single snapshot returned %d below-threshold seeds, want 0", len(belowThreshold))
	}
}
