// Package domain holds C10's persisted record: a TradeOutcome is the
// terminal result of one candidate's trip through the execution engine,
// costed in wei with the three-bucket accounting the spec requires on top
// of C6's quoted CostBreakdown.
package domain

import (
	"math/big"

	"github.com/fd1az/flashbot/internal/apperror"
)

// Status mirrors the execution-domain Result's Status() label exactly, so
// a TradeOutcome's status is always one of the seven terminal labels the
// engine can produce.
type Status string

const (
	StatusConfirmed          Status = "confirmed"
	StatusReverted           Status = "reverted"
	StatusSimulationReverted Status = "simulation_reverted"
	StatusFailed             Status = "failed"
	StatusStaleAborted       Status = "stale_aborted"
	StatusCircuitBreakerOpen Status = "circuit_breaker_open"
	StatusDryRun             Status = "dry_run"
)

// TradeOutcome is the append-only record persisted for every candidate
// that reaches the execution engine, whether or not it was ever
// broadcast. TxHash is a synthetic marker (not a real on-chain hash) for
// outcomes that never reached broadcast.
type TradeOutcome struct {
	TxHash      string
	TimestampMs int64
	BlockNumber uint64
	PathLabel   string
	InputAmount *big.Int
	GrossProfit *big.Int
	GasCost     *big.Int
	L1DataFee   *big.Int
	RevertCost  *big.Int
	NetProfit   *big.Int
	Status      Status
}

// Validate enforces I2: net_profit = gross_profit - gas_cost - l1_data_fee
// - revert_cost. A mismatch here means the caller that built the outcome
// has a bug, not that the data is merely unusual, so callers treat a
// non-nil return as fatal rather than a record to skip.
func (o TradeOutcome) Validate() error {
	want := new(big.Int).Sub(o.GrossProfit, o.GasCost)
	want.Sub(want, o.L1DataFee)
	want.Sub(want, o.RevertCost)
	if want.Cmp(o.NetProfit) != 0 {
		return apperror.Validation(apperror.CodeInvariantViolation,
			"net_profit != gross_profit - gas_cost - l1_data_fee - revert_cost")
	}
	return nil
}
