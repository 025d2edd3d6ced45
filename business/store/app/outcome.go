// Package app builds the persisted TradeOutcome from a terminal engine
// Result and exposes the read side (stats, last-N) the report CLI uses.
package app

import (
	"math/big"

	"github.com/google/uuid"

	arbitragedomain "github.com/fd1az/flashbot/business/arbitrage/domain"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	"github.com/fd1az/flashbot/business/store/domain"
)

// BuildOutcome converts a candidate and the terminal Result the engine
// produced for it into a TradeOutcome ready for Append. Every branch
// computes NetProfit as gross-gas-l1-revert rather than copying a
// candidate-quoted figure, so the I2 invariant holds by construction.
func BuildOutcome(candidate *arbitragedomain.Candidate, result executiondomain.Result, nowMs int64) domain.TradeOutcome {
	out := domain.TradeOutcome{
		TimestampMs: nowMs,
		PathLabel:   candidate.PathLabel(),
		InputAmount: inputAmount(candidate),
		BlockNumber: candidate.BlockNumber,
		GrossProfit: big.NewInt(0),
		GasCost:     big.NewInt(0),
		L1DataFee:   big.NewInt(0),
		RevertCost:  big.NewInt(0),
		Status:      domain.Status(result.Status()),
	}

	switch r := result.(type) {
	case executiondomain.Confirmed:
		out.TxHash = r.TxHash.Hex()
		out.BlockNumber = r.Block
		out.GrossProfit = nonNil(r.GrossProfitWei)
		out.GasCost = gasCost(r.GasUsed, r.EffectiveGasPrice)
		out.L1DataFee = candidate.Costs.L1DataFee.Raw()
	case executiondomain.Reverted:
		out.TxHash = r.TxHash.Hex()
		out.BlockNumber = r.Block
		out.RevertCost = gasCost(r.GasUsed, r.EffectiveGasPrice)
	case executiondomain.DryRun:
		out.TxHash = syntheticTxHash()
		out.GrossProfit = nonNil(r.SimulatedGrossProfitWei)
		out.GasCost = candidate.Costs.L2GasCost.Raw()
		out.L1DataFee = candidate.Costs.L1DataFee.Raw()
	default:
		// SimulationReverted, Failed, StaleAborted, CircuitBreakerOpen: no
		// on-chain footprint, so every bucket stays at zero.
		out.TxHash = syntheticTxHash()
	}

	out.NetProfit = new(big.Int).Sub(out.GrossProfit, out.GasCost)
	out.NetProfit.Sub(out.NetProfit, out.L1DataFee)
	out.NetProfit.Sub(out.NetProfit, out.RevertCost)
	return out
}

func inputAmount(candidate *arbitragedomain.Candidate) *big.Int {
	if candidate.Input == nil {
		return big.NewInt(0)
	}
	return candidate.Input.ToBig()
}

func gasCost(gasUsed uint64, effectiveGasPrice *big.Int) *big.Int {
	if effectiveGasPrice == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), effectiveGasPrice)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// syntheticTxHash marks an outcome that never reached broadcast, so the
// persisted record still has a unique identifier to key off of.
func syntheticTxHash() string {
	return "sim:" + uuid.New().String()
}
