package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/business/store/domain"
	"github.com/fd1az/flashbot/internal/asset"
)

func testCandidate(t *testing.T) *arbitragedomain.Candidate {
	t.Helper()
	weth := asset.NewAsset(asset.NewTokenAssetID(42161, common.HexToAddress("0x1")), "WETH", 18)
	buyPool := &pooldomain.PoolDescriptor{Label: "poolA"}
	sellPool := &pooldomain.PoolDescriptor{Label: "poolB"}

	return &arbitragedomain.Candidate{
		Seed: arbitragedomain.Seed{
			BuyLeg:  &pooldomain.PoolSnapshot{Pool: buyPool},
			SellLeg: &pooldomain.PoolSnapshot{Pool: sellPool},
		},
		Input:       new(pooldomain.Uint256).SetUint64(1_000_000_000_000_000_000),
		BlockNumber: 100,
		Costs: arbitragedomain.CostBreakdown{
			L2GasCost: asset.NewAmountFromInt64(weth, 2_000_000),
			L1DataFee: asset.NewAmountFromInt64(weth, 500_000),
		},
	}
}

func TestBuildOutcome_Confirmed(t *testing.T) {
	candidate := testCandidate(t)
	result := executiondomain.Confirmed{
		TxHash:            common.HexToHash("0xabc"),
		Block:             101,
		GasUsed:           21000,
		EffectiveGasPrice: big.NewInt(1_000_000_000),
		GrossProfitWei:    big.NewInt(10_000_000_000_000),
	}

	outcome := BuildOutcome(candidate, result, 1234)
	if outcome.Status != domain.StatusConfirmed {
		t.Fatalf("Status = %q, want confirmed", outcome.Status)
	}
	if outcome.PathLabel != "poolA->poolB" {
		t.Fatalf("PathLabel = %q, want poolA->poolB", outcome.PathLabel)
	}
	wantGas := new(big.Int).Mul(big.NewInt(21000), big.NewInt(1_000_000_000))
	if outcome.GasCost.Cmp(wantGas) != 0 {
		t.Errorf("GasCost = %s, want %s", outcome.GasCost, wantGas)
	}
	if outcome.RevertCost.Sign() != 0 {
		t.Errorf("RevertCost = %s, want 0", outcome.RevertCost)
	}
	if err := outcome.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestBuildOutcome_Reverted(t *testing.T) {
	candidate := testCandidate(t)
	result := executiondomain.Reverted{
		TxHash:            common.HexToHash("0xdef"),
		Block:             102,
		GasUsed:           30000,
		EffectiveGasPrice: big.NewInt(2_000_000_000),
	}

	outcome := BuildOutcome(candidate, result, 1234)
	if outcome.Status != domain.StatusReverted {
		t.Fatalf("Status = %q, want reverted", outcome.Status)
	}
	if outcome.GrossProfit.Sign() != 0 {
		t.Errorf("GrossProfit = %s, want 0", outcome.GrossProfit)
	}
	wantRevertCost := new(big.Int).Mul(big.NewInt(30000), big.NewInt(2_000_000_000))
	if outcome.RevertCost.Cmp(wantRevertCost) != 0 {
		t.Errorf("RevertCost = %s, want %s", outcome.RevertCost, wantRevertCost)
	}
	if outcome.NetProfit.Sign() >= 0 {
		t.Errorf("NetProfit = %s, want negative", outcome.NetProfit)
	}
	if err := outcome.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestBuildOutcome_SimulationRevertedHasNoOnChainFootprint(t *testing.T) {
	candidate := testCandidate(t)
	outcome := BuildOutcome(candidate, executiondomain.SimulationReverted{}, 1234)

	if outcome.Status != domain.StatusSimulationReverted {
		t.Fatalf("Status = %q, want simulation_reverted", outcome.Status)
	}
	if outcome.NetProfit.Sign() != 0 {
		t.Errorf("NetProfit = %s, want 0", outcome.NetProfit)
	}
	if outcome.TxHash == "" {
		t.Error("expected a synthetic tx hash marker for a non-broadcast outcome")
	}
}

func TestSummarize_WinRate(t *testing.T) {
	outcomes := []domain.TradeOutcome{
		{Status: domain.StatusConfirmed, NetProfit: big.NewInt(100), GrossProfit: big.NewInt(100), GasCost: big.NewInt(0), L1DataFee: big.NewInt(0), RevertCost: big.NewInt(0), TimestampMs: 1},
		{Status: domain.StatusConfirmed, NetProfit: big.NewInt(-10), GrossProfit: big.NewInt(0), GasCost: big.NewInt(10), L1DataFee: big.NewInt(0), RevertCost: big.NewInt(0), TimestampMs: 2},
		{Status: domain.StatusReverted, NetProfit: big.NewInt(-50), GrossProfit: big.NewInt(0), GasCost: big.NewInt(0), L1DataFee: big.NewInt(0), RevertCost: big.NewInt(50), TimestampMs: 3},
		{Status: domain.StatusStaleAborted, NetProfit: big.NewInt(0), GrossProfit: big.NewInt(0), GasCost: big.NewInt(0), L1DataFee: big.NewInt(0), RevertCost: big.NewInt(0), TimestampMs: 4},
	}

	stats := Summarize(outcomes)
	if stats.TotalAttempted != 4 {
		t.Fatalf("TotalAttempted = %d, want 4", stats.TotalAttempted)
	}
	if stats.CountsByStatus[domain.StatusConfirmed] != 2 {
		t.Errorf("CountsByStatus[confirmed] = %d, want 2", stats.CountsByStatus[domain.StatusConfirmed])
	}
	// Only one of the two confirmed outcomes has a positive net profit.
	if !stats.WinRate.Equal(stats.WinRate.Truncate(4)) {
		t.Fatalf("WinRate should be exact to 4 decimal places: %s", stats.WinRate)
	}
	want := "0.25"
	if stats.WinRate.String() != want {
		t.Errorf("WinRate = %s, want %s", stats.WinRate, want)
	}
	if stats.FirstTimestampMs != 1 || stats.LastTimestampMs != 4 {
		t.Errorf("timestamp window = [%d, %d], want [1, 4]", stats.FirstTimestampMs, stats.LastTimestampMs)
	}
}
