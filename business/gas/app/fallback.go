package app

import "math/big"

// DefaultPerStepGas is the conservative per-swap-step gas figure used when
// a live gas estimate can't be obtained. It deliberately overestimates a
// typical single-hop swap so the fallback never understates cost.
const DefaultPerStepGas = 180_000

// FallbackEstimate builds a conservative estimate from path length alone,
// used whenever the oracle's RPC call fails or times out. It never
// reports L1 data fee, since that can't be approximated without a node
// round-trip; on a chain that charges one, the returned total leaves that
// component out.
func FallbackEstimate(numSteps int, gasPriceWei *big.Int) Estimate {
	gasLimit := uint64(numSteps) * DefaultPerStepGas
	total := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPriceWei)
	return Estimate{
		GasLimit:     gasLimit,
		TotalCostWei: total,
		L1DataFeeWei: big.NewInt(0),
		BaseFeeWei:   gasPriceWei,
		Fallback:     true,
	}
}
