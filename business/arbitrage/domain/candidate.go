// Package domain holds the arbitrage-detection context's core types: the
// seed a pair of snapshots produces, the costed candidate that results from
// sizing and estimation, and the four-bucket cost accounting behind it.
package domain

import (
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/asset"
)

// Seed is the directed buy/sell pair emitted by the opportunity detector,
// before sizing or cost estimation has run.
type Seed struct {
	Pair      pooldomain.PairKey
	BuyLeg    *pooldomain.PoolSnapshot
	SellLeg   *pooldomain.PoolSnapshot
	DeltaBps  int64
	// TokenInIsToken0 reports whether the buy leg consumes token0 of its
	// own pair (the sell leg necessarily consumes the opposite token, the
	// buy leg's output).
	TokenInIsToken0 bool
}

// RejectReason enumerates why a seed or sized candidate never became a
// submittable trade.
type RejectReason string

const (
	RejectBelowThreshold   RejectReason = "below_threshold"
	RejectSizerFallback    RejectReason = "sizer_fallback_unprofitable"
	RejectUnprofitable     RejectReason = "unprofitable"
	RejectRiskBufferNotMet RejectReason = "risk_buffer_not_met"
	RejectNoLiquidity      RejectReason = "no_flash_loan_liquidity"
)

// Candidate is a seed after sizing (C5) and cost estimation (C6): a fully
// costed, directed trade ready for C7 to plan as a transaction, or a
// rejection reason if it didn't clear the profit bar.
type Candidate struct {
	Seed  Seed
	Input *pooldomain.Uint256
	Steps []executiondomain.SwapStep
	Costs CostBreakdown
	// GrossProfit and NetProfit are signed: negative means the path lost
	// money before or after costs respectively.
	GrossProfit asset.SignedAmount
	NetProfit   asset.SignedAmount

	SizerFellBack bool
	Rejected      bool
	RejectReason  RejectReason

	// DetectedAtMs and BlockNumber are carried forward from the seed's
	// snapshots for C8's staleness gate: the most recent observation time
	// and the most conservative (lowest) observed block number of the two
	// legs, since a stale leg makes the whole candidate stale.
	DetectedAtMs int64
	BlockNumber  uint64
}

// PathLabel renders a short human-readable route description for logs and
// the trade store.
func (s Seed) PathLabel() string {
	if s.BuyLeg == nil || s.SellLeg == nil {
		return ""
	}
	return s.BuyLeg.Pool.Label + "->" + s.SellLeg.Pool.Label
}

// PathLabel renders a short human-readable route description for logs and
// the trade store.
func (c *Candidate) PathLabel() string {
	return c.Seed.PathLabel()
}

// IsProfitable reports whether the candidate cleared every gate and is
// eligible to proceed to C7.
func (c *Candidate) IsProfitable() bool {
	return !c.Rejected && !c.NetProfit.IsNegative()
}
