package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GasPlan is the EIP-1559 fee parameters C7 derives for one transaction.
type GasPlan struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasLimit             uint64
}

// PreparedTransaction is C7's output: everything C8 needs to simulate and
// broadcast a call to the executor contract, plus the bookkeeping fields
// carried through to the trade store on completion.
type PreparedTransaction struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	ChainID *big.Int
	Nonce   uint64
	Gas     GasPlan

	Steps               []SwapStep
	FlashLoanProvider   common.Address
	FlashLoanToken      common.Address
	FlashLoanAmount     *big.Int

	// PathLabel is a human-readable route description for logs and the
	// trade store, e.g. "poolA->poolB".
	PathLabel string

	// DetectedAtMs and BlockNumber are carried from the candidate for the
	// staleness gate, evaluated right after simulation rather than at
	// planning time so the check reflects the freshest head block.
	DetectedAtMs int64
	BlockNumber  uint64
}
