package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	"github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
)

type fakeSimulator struct {
	revert *domain.RevertReason
	err    error
}

func (f *fakeSimulator) Simulate(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (*domain.RevertReason, error) {
	return f.revert, f.err
}

type fakeSubmitter struct {
	submitErr error
	txHash    common.Hash
	receipt   *Receipt
	waitErr   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	return f.txHash, nil
}

func (f *fakeSubmitter) WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.receipt, nil
}

type fakeLedger struct {
	nextNonce uint64
	nextErr   error
	resolved  []domain.NonceState
}

func (f *fakeLedger) Reconcile(ctx context.Context, chainNonce uint64) error { return nil }

func (f *fakeLedger) NextNonce(ctx context.Context, chainNonce uint64) (uint64, error) {
	if f.nextErr != nil {
		return 0, f.nextErr
	}
	return f.nextNonce, nil
}

func (f *fakeLedger) MarkResolved(ctx context.Context, nonce uint64, txHash common.Hash, state domain.NonceState) error {
	f.resolved = append(f.resolved, state)
	return nil
}

type fakeHead struct {
	block uint64
	err   error
}

func (f *fakeHead) HeadBlock(ctx context.Context) (uint64, error) { return f.block, f.err }

type fakeNonceSource struct {
	nonce uint64
	err   error
}

func (f *fakeNonceSource) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, f.err
}

// testEngine wires an Engine with every dependency faked except the
// planner (a real Planner over a fake Encoder), so gas math and calldata
// stay exercised end to end.
func testEngine(t *testing.T, cfg EngineConfig, simulator Simulator, submitter Submitter, ledger NonceLedger, head HeadProvider, nonceSource ChainNonceSource) (*Engine, *Breaker) {
	t.Helper()
	breaker := NewBreaker(3)
	plannerCfg := PlannerConfig{ChainID: big.NewInt(1), PriorityFeePerGas: big.NewInt(0), GasLimitMultiplier: 1}
	planner := NewPlanner(plannerCfg, &fakeEncoder{calldata: []byte{0x01}}, noopLogger())
	engine := NewEngine(cfg, planner, breaker, simulator, submitter, ledger, head, nonceSource, noopLogger())
	engine.now = func() int64 { return 2000 }
	return engine, breaker
}

func baseEngineCfg() EngineConfig {
	return EngineConfig{
		MaxStalenessMs:      1000,
		MaxBlockLag:         3,
		DryRun:              false,
		ConfirmationTimeout: time.Second,
		SpeedUpMultiplier:   1.125,
	}
}

func TestEngine_Execute_CircuitBreakerOpenShortCircuits(t *testing.T) {
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})
	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordFailure()

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.CircuitBreakerOpen); !ok {
		t.Fatalf("result = %T, want CircuitBreakerOpen", result)
	}
}

func TestEngine_Execute_PlannerErrorRecordsFailure(t *testing.T) {
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), &arbitragedomain.Candidate{}, registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.Failed); !ok {
		t.Fatalf("result = %T, want Failed", result)
	}
	if breaker.ConsecutiveFailures() != 1 {
		t.Errorf("consecutive failures = %d, want 1", breaker.ConsecutiveFailures())
	}
}

func TestEngine_Execute_SimulationRevertedNeverCountsTowardBreaker(t *testing.T) {
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{revert: &domain.RevertReason{Selector: "InsufficientProfit"}}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	reverted, ok := result.(domain.SimulationReverted)
	if !ok {
		t.Fatalf("result = %T, want SimulationReverted", result)
	}
	if reverted.Revert.Selector != "InsufficientProfit" {
		t.Errorf("revert selector = %q, want InsufficientProfit", reverted.Revert.Selector)
	}
	if breaker.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d, want 0 (simulation reverts don't count)", breaker.ConsecutiveFailures())
	}
}

func TestEngine_Execute_SimulationTransportErrorRecordsFailure(t *testing.T) {
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{err: errors.New("dial tcp: refused")}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.Failed); !ok {
		t.Fatalf("result = %T, want Failed", result)
	}
	if breaker.ConsecutiveFailures() != 1 {
		t.Errorf("consecutive failures = %d, want 1", breaker.ConsecutiveFailures())
	}
}

func TestEngine_Execute_StaleByTimeAborts(t *testing.T) {
	cfg := baseEngineCfg()
	cfg.MaxStalenessMs = 500
	engine, _ := testEngine(t, cfg, &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{block: 42}, &fakeNonceSource{})

	candidate := testCandidate(t, 1) // DetectedAtMs: 1000, BlockNumber: 42; engine.now() fixed at 2000
	result := engine.Execute(context.Background(), candidate, registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.StaleAborted); !ok {
		t.Fatalf("result = %T, want StaleAborted", result)
	}
}

func TestEngine_Execute_StaleByBlockLagAborts(t *testing.T) {
	cfg := baseEngineCfg()
	cfg.MaxStalenessMs = 100_000
	cfg.MaxBlockLag = 2
	engine, _ := testEngine(t, cfg, &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{block: 50}, &fakeNonceSource{})

	candidate := testCandidate(t, 1) // BlockNumber 42, head 50 => lag 8 > 2
	result := engine.Execute(context.Background(), candidate, registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	stale, ok := result.(domain.StaleAborted)
	if !ok {
		t.Fatalf("result = %T, want StaleAborted", result)
	}
	if stale.BlockLag != 8 {
		t.Errorf("BlockLag = %d, want 8", stale.BlockLag)
	}
}

func TestEngine_Execute_DryRunStopsShortOfSubmission(t *testing.T) {
	cfg := baseEngineCfg()
	cfg.DryRun = true
	submitter := &fakeSubmitter{}
	engine, _ := testEngine(t, cfg, &fakeSimulator{}, submitter, &fakeLedger{}, &fakeHead{block: 42}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.DryRun); !ok {
		t.Fatalf("result = %T, want DryRun", result)
	}
}

func TestEngine_Execute_ConfirmedUsesReceiptGroundTruth(t *testing.T) {
	txHash := common.HexToHash("0xabc")
	ledger := &fakeLedger{nextNonce: 9}
	submitter := &fakeSubmitter{
		txHash: txHash,
		receipt: &Receipt{
			Status:            1,
			BlockNumber:       43,
			GasUsed:           150_000,
			EffectiveGasPrice: big.NewInt(1_000_000_000),
			GrossProfitWei:    big.NewInt(5_000_000),
		},
	}
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, submitter, ledger, &fakeHead{block: 42}, &fakeNonceSource{nonce: 8})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	confirmed, ok := result.(domain.Confirmed)
	if !ok {
		t.Fatalf("result = %T, want Confirmed", result)
	}
	if confirmed.GrossProfitWei.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Errorf("GrossProfitWei = %s, want 5000000", confirmed.GrossProfitWei)
	}
	if confirmed.TxHash != txHash {
		t.Errorf("TxHash = %s, want %s", confirmed.TxHash, txHash)
	}
	if breaker.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d, want 0 after a confirmed execution", breaker.ConsecutiveFailures())
	}
	if len(ledger.resolved) != 1 || ledger.resolved[0] != domain.NonceStateMined {
		t.Errorf("ledger.resolved = %v, want one NonceStateMined entry", ledger.resolved)
	}
}

func TestEngine_Execute_RevertedRecordsFailureAndMarksNonceMined(t *testing.T) {
	ledger := &fakeLedger{nextNonce: 9}
	submitter := &fakeSubmitter{
		txHash:  common.HexToHash("0xdead"),
		receipt: &Receipt{Status: 0, BlockNumber: 43, GasUsed: 80_000},
	}
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, submitter, ledger, &fakeHead{block: 42}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.Reverted); !ok {
		t.Fatalf("result = %T, want Reverted", result)
	}
	if breaker.ConsecutiveFailures() != 1 {
		t.Errorf("consecutive failures = %d, want 1", breaker.ConsecutiveFailures())
	}
}

func TestEngine_Execute_SubmitErrorDropsNonce(t *testing.T) {
	ledger := &fakeLedger{nextNonce: 9}
	submitter := &fakeSubmitter{submitErr: errors.New("nonce too low")}
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, submitter, ledger, &fakeHead{block: 42}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.Failed); !ok {
		t.Fatalf("result = %T, want Failed", result)
	}
	if breaker.ConsecutiveFailures() != 1 {
		t.Errorf("consecutive failures = %d, want 1", breaker.ConsecutiveFailures())
	}
	if len(ledger.resolved) != 1 || ledger.resolved[0] != domain.NonceStateDropped {
		t.Errorf("ledger.resolved = %v, want one NonceStateDropped entry", ledger.resolved)
	}
}

func TestEngine_Execute_ConfirmationTimeoutIsFailed(t *testing.T) {
	submitter := &fakeSubmitter{waitErr: context.DeadlineExceeded}
	engine, breaker := testEngine(t, baseEngineCfg(), &fakeSimulator{}, submitter, &fakeLedger{}, &fakeHead{block: 42}, &fakeNonceSource{})

	result := engine.Execute(context.Background(), testCandidate(t, 1), registrydomain.FlashLoanProvider{}, gasapp.Estimate{BaseFeeWei: big.NewInt(0)}, common.Address{})
	if _, ok := result.(domain.Failed); !ok {
		t.Fatalf("result = %T, want Failed", result)
	}
	if breaker.ConsecutiveFailures() != 1 {
		t.Errorf("consecutive failures = %d, want 1", breaker.ConsecutiveFailures())
	}
}

func TestEngine_BuildSpeedUp_IncreasesFeesBySpeedUpMultiplier(t *testing.T) {
	engine, _ := testEngine(t, baseEngineCfg(), &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})
	tx := &domain.PreparedTransaction{
		Gas: domain.GasPlan{MaxFeePerGas: big.NewInt(1000), MaxPriorityFeePerGas: big.NewInt(100), GasLimit: 200_000},
	}

	replacement := engine.BuildSpeedUp(tx)
	if replacement.Gas.MaxFeePerGas.Cmp(big.NewInt(1125)) != 0 {
		t.Errorf("MaxFeePerGas = %s, want 1125", replacement.Gas.MaxFeePerGas)
	}
	if replacement.Gas.MaxPriorityFeePerGas.Cmp(big.NewInt(113)) != 0 {
		t.Errorf("MaxPriorityFeePerGas = %s, want 113", replacement.Gas.MaxPriorityFeePerGas)
	}
	if replacement.Gas.GasLimit != tx.Gas.GasLimit {
		t.Errorf("GasLimit changed: got %d, want unchanged %d", replacement.Gas.GasLimit, tx.Gas.GasLimit)
	}
}

func TestEngine_BuildCancellation_SelfTransferAtSameNonce(t *testing.T) {
	engine, _ := testEngine(t, baseEngineCfg(), &fakeSimulator{}, &fakeSubmitter{}, &fakeLedger{}, &fakeHead{}, &fakeNonceSource{})
	from := common.HexToAddress("0x00000000000000000000000000000000000055")
	tx := &domain.PreparedTransaction{
		Nonce:   12,
		ChainID: big.NewInt(1),
		Gas:     domain.GasPlan{MaxFeePerGas: big.NewInt(1000), MaxPriorityFeePerGas: big.NewInt(100)},
	}

	cancellation := engine.BuildCancellation(tx, from)
	if cancellation.To != from {
		t.Errorf("To = %s, want self-transfer to %s", cancellation.To, from)
	}
	if cancellation.Nonce != tx.Nonce {
		t.Errorf("Nonce = %d, want %d", cancellation.Nonce, tx.Nonce)
	}
	if cancellation.Value.Sign() != 0 {
		t.Errorf("Value = %s, want 0", cancellation.Value)
	}
}
