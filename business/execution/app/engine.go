package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/logger"
)

const engineTracerName = "github.com/fd1az/flashbot/business/execution/app"

// EngineConfig tunes the gate sequence C8 applies to every candidate.
type EngineConfig struct {
	MaxStalenessMs      int64
	MaxBlockLag         uint64
	DryRun              bool
	ConfirmationTimeout time.Duration
	SpeedUpMultiplier   float64
}

// Engine implements C8: the five-gate state machine over a single
// candidate (circuit breaker, simulation, staleness, dry-run, nonce),
// followed by submission and receipt tracking.
type Engine struct {
	cfg         EngineConfig
	planner     *Planner
	breaker     *Breaker
	simulator   Simulator
	submitter   Submitter
	ledger      NonceLedger
	head        HeadProvider
	nonceSource ChainNonceSource
	logger      logger.LoggerInterface
	tracer      trace.Tracer

	now func() int64
}

// NewEngine constructs an Engine around its gate dependencies.
func NewEngine(cfg EngineConfig, planner *Planner, breaker *Breaker, simulator Simulator, submitter Submitter, ledger NonceLedger, head HeadProvider, nonceSource ChainNonceSource, log logger.LoggerInterface) *Engine {
	return &Engine{
		cfg:         cfg,
		planner:     planner,
		breaker:     breaker,
		simulator:   simulator,
		submitter:   submitter,
		ledger:      ledger,
		head:        head,
		nonceSource: nonceSource,
		logger:      log,
		tracer:      otel.Tracer(engineTracerName),
		now:         func() int64 { return time.Now().UnixMilli() },
	}
}

// Execute runs candidate through every gate in order, submitting and
// tracking it to a terminal Result if it clears all of them. It never
// returns an error: every failure mode is converted into a Result variant,
// per the propagation policy (process-level errors are reserved for
// invariant violations and startup RPC failures, neither of which this
// function can produce).
func (e *Engine) Execute(ctx context.Context, candidate *Candidate, provider registrydomain.FlashLoanProvider, estimate gasapp.Estimate, from common.Address) domain.Result {
	ctx, span := e.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(attribute.String("path", candidate.PathLabel())))
	defer span.End()

	if e.breaker.Open() {
		span.SetStatus(codes.Ok, "circuit breaker open")
		return domain.CircuitBreakerOpen{ConsecutiveFailures: e.breaker.ConsecutiveFailures()}
	}

	// The planner needs a nonce argument to shape the transaction, but
	// simulation doesn't depend on it being correct; a placeholder is
	// patched with the real value only after the nonce gate passes.
	tx, err := e.planner.Plan(ctx, candidate, provider, 0, estimate)
	if err != nil {
		e.breaker.RecordFailure()
		span.RecordError(err)
		return domain.Failed{Reason: err.Error()}
	}

	revert, err := e.simulator.Simulate(ctx, tx, from)
	if err != nil {
		e.breaker.RecordFailure()
		span.RecordError(err)
		return domain.Failed{Reason: fmt.Sprintf("simulation transport error: %v", err)}
	}
	if revert != nil {
		// A revert caught in simulation saved gas rather than costing it;
		// it does not count toward the breaker.
		span.SetStatus(codes.Ok, "simulation reverted")
		return domain.SimulationReverted{Revert: *revert}
	}

	headBlock, err := e.head.HeadBlock(ctx)
	if err != nil {
		e.breaker.RecordFailure()
		span.RecordError(err)
		return domain.Failed{Reason: fmt.Sprintf("head block lookup failed: %v", err)}
	}
	stalenessMs := e.now() - tx.DetectedAtMs
	var blockLag uint64
	if headBlock > tx.BlockNumber {
		blockLag = headBlock - tx.BlockNumber
	}
	if stalenessMs > e.cfg.MaxStalenessMs || blockLag > e.cfg.MaxBlockLag {
		span.SetAttributes(attribute.Int64("staleness_ms", stalenessMs), attribute.Int64("block_lag", int64(blockLag)))
		return domain.StaleAborted{StalenessMs: stalenessMs, BlockLag: blockLag}
	}

	if e.cfg.DryRun {
		return domain.DryRun{SimulatedGrossProfitWei: candidate.GrossProfit.Raw()}
	}

	chainNonce, err := e.nonceSource.PendingNonceAt(ctx, from)
	if err != nil {
		e.breaker.RecordFailure()
		return domain.Failed{Reason: apperror.External(apperror.CodeNonceConflict, "fetch chain nonce", err).Error()}
	}
	nonce, err := e.ledger.NextNonce(ctx, chainNonce)
	if err != nil {
		e.breaker.RecordFailure()
		return domain.Failed{Reason: apperror.External(apperror.CodeNonceConflict, "reserve next nonce", err).Error()}
	}
	tx.Nonce = nonce

	txHash, err := e.submitter.Submit(ctx, tx, from)
	if err != nil {
		e.breaker.RecordFailure()
		_ = e.ledger.MarkResolved(ctx, nonce, common.Hash{}, domain.NonceStateDropped)
		return domain.Failed{Reason: apperror.External(apperror.CodeSubmissionFailed, "broadcast", err).Error()}
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmationTimeout)
	defer cancel()
	receipt, err := e.submitter.WaitForReceipt(waitCtx, txHash)
	if err != nil {
		e.breaker.RecordFailure()
		return domain.Failed{Reason: apperror.External(apperror.CodeConfirmationTimeout, txHash.Hex(), err).Error()}
	}

	if receipt.Status == 1 {
		e.breaker.RecordSuccess()
		_ = e.ledger.MarkResolved(ctx, nonce, txHash, domain.NonceStateMined)
		span.SetStatus(codes.Ok, "confirmed")
		return domain.Confirmed{
			TxHash:            txHash,
			Block:             receipt.BlockNumber,
			GasUsed:           receipt.GasUsed,
			EffectiveGasPrice: receipt.EffectiveGasPrice,
			GrossProfitWei:    receipt.GrossProfitWei,
			Logs:              receipt.Logs,
		}
	}

	e.breaker.RecordFailure()
	_ = e.ledger.MarkResolved(ctx, nonce, txHash, domain.NonceStateMined)
	return domain.Reverted{
		TxHash:            txHash,
		Block:             receipt.BlockNumber,
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
	}
}

// BuildSpeedUp constructs a replacement transaction at the same nonce with
// at least SpeedUpMultiplier higher fees, the recovery primitive offered on
// a confirmation timeout.
func (e *Engine) BuildSpeedUp(tx *domain.PreparedTransaction) *domain.PreparedTransaction {
	replacement := *tx
	replacement.Gas = domain.GasPlan{
		MaxFeePerGas:         scaleUp(tx.Gas.MaxFeePerGas, e.cfg.SpeedUpMultiplier),
		MaxPriorityFeePerGas: scaleUp(tx.Gas.MaxPriorityFeePerGas, e.cfg.SpeedUpMultiplier),
		GasLimit:             tx.Gas.GasLimit,
	}
	return &replacement
}

// BuildCancellation constructs a zero-value self-transfer at the same
// nonce, the standard way to clear a stuck nonce without retrying the
// trade.
func (e *Engine) BuildCancellation(tx *domain.PreparedTransaction, from common.Address) *domain.PreparedTransaction {
	return &domain.PreparedTransaction{
		To:      from,
		Value:   big.NewInt(0),
		ChainID: tx.ChainID,
		Nonce:   tx.Nonce,
		Gas: domain.GasPlan{
			MaxFeePerGas:         scaleUp(tx.Gas.MaxFeePerGas, e.cfg.SpeedUpMultiplier),
			MaxPriorityFeePerGas: scaleUp(tx.Gas.MaxPriorityFeePerGas, e.cfg.SpeedUpMultiplier),
			GasLimit:             21000,
		},
		PathLabel: "cancellation",
	}
}

func scaleUp(wei *big.Int, multiplier float64) *big.Int {
	scaled := new(big.Float).Mul(new(big.Float).SetInt(wei), big.NewFloat(multiplier))
	out, acc := scaled.Int(nil)
	if acc == big.Below {
		out.Add(out, big.NewInt(1))
	}
	return out
}
