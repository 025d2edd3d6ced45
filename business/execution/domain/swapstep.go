// Package domain models the execution-engine's view of a planned
// transaction: the swap path it encodes, the typed outcome it can produce,
// and the nonce-ledger bookkeeping around submission.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapStep is one hop of a planned arbitrage path, shared by the arbitrage
// path-walker (which discovers the route) and the transaction planner
// (which encodes it for the executor contract).
type SwapStep struct {
	PoolAddress common.Address
	TokenIn     common.Address
	TokenOut    common.Address
	// AmountIn is the wei amount this step consumes. The first step in a
	// plan carries the flash-loaned amount; every later step carries zero,
	// meaning "use the output balance of the previous step" (the executor
	// contract tracks running balance on-chain).
	AmountIn *big.Int
	// ExtraData carries DEX-specific routing data: a V3 fee tier
	// (right-padded uint24), empty for V2-style pools, or a packed
	// bin-step + token path for liquidity-book style pools.
	ExtraData []byte
	DexKind   string
}
