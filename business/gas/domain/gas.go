// Package domain models gas-cost decomposition for both Arbitrum's
// L1/L2-split fee model and a generic EVM chain's flat gas_price*gas_used
// model.
package domain

import "math/big"

// CostComponents mirrors the Arbitrum node interface's
// gasEstimateComponents(to, isCreate, data) return shape. On a generic EVM
// chain, L1Gas is always zero and L2BaseFeeWei holds the effective gas
// price.
type CostComponents struct {
	TotalGas             uint64
	L1Gas                uint64
	L2BaseFeeWei         *big.Int
	L1BaseFeeEstimateWei *big.Int
}

// L2CostWei is the portion of the cost billed at L2 execution: every unit
// of gas the L1 calldata posting did not consume, priced at the L2 base
// fee.
func (c CostComponents) L2CostWei() *big.Int {
	l2Gas := new(big.Int).SetUint64(c.TotalGas - c.L1Gas)
	return new(big.Int).Mul(l2Gas, c.L2BaseFeeWei)
}

// L1CostWei is the L1 calldata-posting cost, billed in L2 base-fee units
// (the node interface bills the L1 share through the L2 base fee, not
// L1BaseFeeEstimateWei — that field is informational only).
func (c CostComponents) L1CostWei() *big.Int {
	l1Gas := new(big.Int).SetUint64(c.L1Gas)
	return new(big.Int).Mul(l1Gas, c.L2BaseFeeWei)
}

// TotalCostWei is L2CostWei + L1CostWei.
func (c CostComponents) TotalCostWei() *big.Int {
	return new(big.Int).Add(c.L2CostWei(), c.L1CostWei())
}

// Estimate is the cost estimator's consumable gas figure for a planned
// transaction: total wei cost plus the components a typed revert or
// transaction planner might need individually.
type Estimate struct {
	GasLimit     uint64
	TotalCostWei *big.Int
	L1DataFeeWei *big.Int
	BaseFeeWei   *big.Int
	Fallback     bool // true if the RPC estimate failed and this is conservative fallback
}
