package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Result is the closed set of terminal outcomes a candidate can reach. Each
// variant is a distinct struct implementing the unexported marker method so
// the compiler, not a string tag, enforces exhaustiveness at the call site
// that switches on it.
type Result interface {
	isResult()
	// Status is the short label persisted to the trade store and logged in
	// structured events.
	Status() string
}

// Confirmed is a mined, successful execution: the executor's
// ArbitrageExecuted log supplies ground-truth profit, never the quoted
// estimate.
type Confirmed struct {
	TxHash            common.Hash
	Block             uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	GrossProfitWei    *big.Int
	Logs              []Log
}

func (Confirmed) isResult()      {}
func (Confirmed) Status() string { return "confirmed" }

// Log is a decoded event log attached to a receipt, kept minimal since only
// ArbitrageExecuted is ever parsed for ground truth.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Reverted is a mined transaction that reverted on-chain: gas was spent,
// nothing was gained. Revert is left zero-value when the node's receipt
// carries no revert payload; recovering the decoded reason would require
// replaying the exact historical call, which is left to offline tooling.
type Reverted struct {
	TxHash            common.Hash
	Block             uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Revert            RevertReason
}

func (Reverted) isResult()      {}
func (Reverted) Status() string { return "reverted" }

// SimulationReverted is an eth_call failure before broadcast: no gas was
// spent on-chain, so this never counts toward the circuit breaker.
type SimulationReverted struct {
	Revert RevertReason
}

func (SimulationReverted) isResult()      {}
func (SimulationReverted) Status() string { return "simulation_reverted" }

// Failed covers submission/RPC failures that are neither a revert nor a
// gating rejection: broadcast errors, receipt-wait transport failures.
type Failed struct {
	Reason string
}

func (Failed) isResult()      {}
func (Failed) Status() string { return "failed" }

// StaleAborted means the staleness gate rejected the candidate after
// simulation passed and before submission.
type StaleAborted struct {
	StalenessMs int64
	BlockLag    uint64
}

func (StaleAborted) isResult()      {}
func (StaleAborted) Status() string { return "stale_aborted" }

// CircuitBreakerOpen means the domain breaker's consecutive-failure gate
// rejected the candidate; it stays open until an operator calls Resume.
type CircuitBreakerOpen struct {
	ConsecutiveFailures int
}

func (CircuitBreakerOpen) isResult()      {}
func (CircuitBreakerOpen) Status() string { return "circuit_breaker_open" }

// DryRun means simulation passed and every gate cleared, but dry-run mode
// stopped the engine short of broadcasting.
type DryRun struct {
	SimulatedGrossProfitWei *big.Int
}

func (DryRun) isResult()      {}
func (DryRun) Status() string { return "dry_run" }

// RevertReason is a decoded (or, failing that, raw) on-chain revert. Decode
// never panics: an unrecognized selector still produces a usable value.
type RevertReason struct {
	Selector string // e.g. "InsufficientProfit", "" if unrecognized
	Message  string
	Args     []any
	RawData  []byte
}

func (r RevertReason) String() string {
	if r.Selector == "" {
		return r.Message
	}
	return r.Message
}
