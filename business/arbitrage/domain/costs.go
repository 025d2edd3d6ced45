package domain

import "github.com/fd1az/flashbot/internal/asset"

// CostBreakdown is C6's four-bucket accounting of everything a trade costs
// beyond the AMM output itself, all denominated in wei of the flash-loaned
// (input) asset so Total and NetProfit arithmetic never crosses assets.
type CostBreakdown struct {
	FlashLoanFee asset.Amount
	L2GasCost    asset.Amount
	L1DataFee    asset.Amount
	SlippageCost asset.Amount
}

// Total sums the four buckets. All four share the same asset by
// construction (the estimator builds them from the same input asset), so
// the intermediate adds cannot fail; a mismatch here is a programming
// error, not a runtime condition, and is allowed to panic via MustAdd.
func (c CostBreakdown) Total() asset.Amount {
	return c.FlashLoanFee.
		MustAdd(c.L2GasCost).
		MustAdd(c.L1DataFee).
		MustAdd(c.SlippageCost)
}
