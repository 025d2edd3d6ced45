package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	"github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/asset"
	"github.com/fd1az/flashbot/internal/logger"
)

// fakeEncoder records the arguments it was called with and returns a fixed
// calldata blob, standing in for infra/ethereum.ContractEncoder.
type fakeEncoder struct {
	lastProvider common.Address
	lastToken    common.Address
	lastAmount   *big.Int
	lastSteps    []domain.SwapStep
	calldata     []byte
	err          error
}

func (f *fakeEncoder) EncodeExecuteArbitrage(provider, token common.Address, amount *big.Int, steps []domain.SwapStep) ([]byte, error) {
	f.lastProvider, f.lastToken, f.lastAmount, f.lastSteps = provider, token, amount, steps
	if f.err != nil {
		return nil, f.err
	}
	return f.calldata, nil
}

func (f *fakeEncoder) DecodeRevert(data []byte) domain.RevertReason {
	return domain.RevertReason{}
}

func testCandidate(t *testing.T, inputWei uint64) *Candidate {
	t.Helper()
	tokenIn := common.HexToAddress("0x00000000000000000000000000000000000001")
	tokenOut := common.HexToAddress("0x00000000000000000000000000000000000002")
	pool := common.HexToAddress("0x00000000000000000000000000000000000003")

	input := new(pooldomain.Uint256).SetUint64(inputWei)
	steps := []domain.SwapStep{
		{PoolAddress: pool, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(int64(inputWei)), DexKind: "v2"},
		{PoolAddress: pool, TokenIn: tokenOut, TokenOut: tokenIn, AmountIn: big.NewInt(0), DexKind: "v2"},
	}

	weth := asset.NewAsset(asset.NewTokenAssetID(asset.ChainIDEthereum, tokenIn), "WETH", 18)
	profit := asset.NewSignedAmount(weth, big.NewInt(1_000_000))

	return &arbitragedomain.Candidate{
		Input:        input,
		Steps:        steps,
		GrossProfit:  profit,
		NetProfit:    profit,
		DetectedAtMs: 1000,
		BlockNumber:  42,
	}
}

func TestPlanner_Plan_EIP1559GasMath(t *testing.T) {
	encoder := &fakeEncoder{calldata: []byte{0xde, 0xad, 0xbe, 0xef}}
	cfg := PlannerConfig{
		ExecutorAddress:    common.HexToAddress("0x00000000000000000000000000000000000099"),
		ChainID:            big.NewInt(42161),
		PriorityFeePerGas:  big.NewInt(100_000_000), // 0.1 gwei
		GasLimitMultiplier: 1.25,
	}
	p := NewPlanner(cfg, encoder, noopLogger())

	candidate := testCandidate(t, 5_000_000_000_000_000_000)
	provider := registrydomain.FlashLoanProvider{Address: common.HexToAddress("0x00000000000000000000000000000000000077")}
	estimate := gasapp.Estimate{GasLimit: 200_000, BaseFeeWei: big.NewInt(1_000_000_000)} // 1 gwei

	tx, err := p.Plan(context.Background(), candidate, provider, 7, estimate)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	wantMaxFee := new(big.Int).Add(new(big.Int).Mul(estimate.BaseFeeWei, big.NewInt(2)), cfg.PriorityFeePerGas)
	if tx.Gas.MaxFeePerGas.Cmp(wantMaxFee) != 0 {
		t.Errorf("MaxFeePerGas = %s, want %s", tx.Gas.MaxFeePerGas, wantMaxFee)
	}
	if tx.Gas.MaxPriorityFeePerGas.Cmp(cfg.PriorityFeePerGas) != 0 {
		t.Errorf("MaxPriorityFeePerGas = %s, want %s", tx.Gas.MaxPriorityFeePerGas, cfg.PriorityFeePerGas)
	}
	// 200,000 * 1.25 = 250,000 exactly; verifies the ceil-rounding path too.
	if tx.Gas.GasLimit != 250_000 {
		t.Errorf("GasLimit = %d, want 250000", tx.Gas.GasLimit)
	}
	if tx.Nonce != 7 {
		t.Errorf("Nonce = %d, want 7", tx.Nonce)
	}
	if string(tx.Data) != string(encoder.calldata) {
		t.Errorf("Data = %x, want %x", tx.Data, encoder.calldata)
	}
	if encoder.lastProvider != provider.Address {
		t.Errorf("encoder received provider %s, want %s", encoder.lastProvider, provider.Address)
	}
	if encoder.lastToken != candidate.Steps[0].TokenIn {
		t.Errorf("encoder received flash loan token %s, want %s", encoder.lastToken, candidate.Steps[0].TokenIn)
	}
}

func TestPlanner_Plan_GasLimitRoundsUp(t *testing.T) {
	encoder := &fakeEncoder{calldata: []byte{0x01}}
	cfg := PlannerConfig{
		ExecutorAddress:    common.Address{},
		ChainID:            big.NewInt(1),
		PriorityFeePerGas:  big.NewInt(0),
		GasLimitMultiplier: 1.25,
	}
	p := NewPlanner(cfg, encoder, noopLogger())
	candidate := testCandidate(t, 1)
	provider := registrydomain.FlashLoanProvider{}
	estimate := gasapp.Estimate{GasLimit: 100_001, BaseFeeWei: big.NewInt(1)}

	tx, err := p.Plan(context.Background(), candidate, provider, 0, estimate)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// 100,001 * 1.25 = 125,001.25, must round up to 125,002.
	if tx.Gas.GasLimit != 125_002 {
		t.Errorf("GasLimit = %d, want 125002", tx.Gas.GasLimit)
	}
}

func TestPlanner_Plan_RejectsEmptySteps(t *testing.T) {
	encoder := &fakeEncoder{}
	cfg := PlannerConfig{ChainID: big.NewInt(1), PriorityFeePerGas: big.NewInt(0), GasLimitMultiplier: 1}
	p := NewPlanner(cfg, encoder, noopLogger())
	candidate := &arbitragedomain.Candidate{}

	if _, err := p.Plan(context.Background(), candidate, registrydomain.FlashLoanProvider{}, 0, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}); err == nil {
		t.Fatal("expected an error for a candidate with no swap steps")
	}
}

func noopLogger() logger.LoggerInterface {
	return logger.New(discardWriter{}, logger.LevelError, "test", nil)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
