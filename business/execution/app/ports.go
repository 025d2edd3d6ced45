// Package app contains the C7/C8/C9 application services: the transaction
// planner, the execution engine's gate sequence, and the domain circuit
// breaker, plus the ports they depend on.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	"github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
)

// Encoder produces and decodes the executor contract's calldata. Declared
// here rather than imported from infra/ethereum so the app layer depends on
// an interface it owns.
type Encoder interface {
	EncodeExecuteArbitrage(provider, token common.Address, amount *big.Int, steps []domain.SwapStep) ([]byte, error)
	DecodeRevert(data []byte) domain.RevertReason
}

// Simulator runs a prepared transaction through eth_call without
// broadcasting it. A non-nil RevertReason with a nil error means the call
// reverted (a normal outcome, not a transport failure); a non-nil error
// means the simulation itself could not be performed.
type Simulator interface {
	Simulate(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (*domain.RevertReason, error)
}

// Submitter signs, broadcasts, and waits for a prepared transaction's
// receipt.
type Submitter interface {
	Submit(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// Receipt is the subset of a mined transaction's receipt the engine needs
// to build a Result. GrossProfitWei is the ground-truth profit decoded from
// the executor's ArbitrageExecuted log (I1: it, not the quoted estimate, is
// what gets persisted on a confirmed outcome); it is nil on a reverted
// receipt, since the event is never emitted.
type Receipt struct {
	Status            uint64
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	GrossProfitWei    *big.Int
	Logs              []domain.Log
}

// NonceLedger is C9: the durable, single-writer source of the next nonce to
// use, reconciled against the chain at startup.
type NonceLedger interface {
	// Reconcile marks mined every pending entry whose nonce is below the
	// chain's reported transaction count. It does not look up receipts;
	// entries at or above that count stay pending.
	Reconcile(ctx context.Context, chainNonce uint64) error
	// NextNonce returns max(chainNonce, lastPersisted+1), appending (and
	// fsync'ing) a new pending entry before returning.
	NextNonce(ctx context.Context, chainNonce uint64) (uint64, error)
	// MarkResolved updates a pending entry's terminal state once its
	// outcome is known.
	MarkResolved(ctx context.Context, nonce uint64, txHash common.Hash, state domain.NonceState) error
}

// HeadProvider supplies the chain head block for the staleness gate.
type HeadProvider interface {
	HeadBlock(ctx context.Context) (uint64, error)
}

// ChainNonceSource reads the wallet's on-chain transaction count.
type ChainNonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// GasOracle is re-declared here, matching business/arbitrage/app.GasOracle,
// so this package doesn't need to import that package just for an
// interface shape.
type GasOracle interface {
	EstimateCost(ctx context.Context, to string, data []byte, numSteps int) (gasapp.Estimate, error)
}

// Candidate is the input to the planner, re-exported so callers don't need
// to import business/arbitrage/domain directly.
type Candidate = arbitragedomain.Candidate
