package domain

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Uint256 is the type used for all reserve, liquidity, and sqrt-price
// quantities. It is an alias for uint256.Int so callers get its full
// arithmetic API (including 512-bit-safe MulDivOverflow) without an
// indirection layer.
type Uint256 = uint256.Int

// NewUint256FromBig converts a *big.Int into a *Uint256. On-chain reads for
// reserves, sqrtPriceX96, and liquidity are guaranteed by the EVM word size
// to fit in 256 bits, so overflow here indicates a malformed RPC response.
func NewUint256FromBig(v *big.Int) (*Uint256, error) {
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("pool: value %s overflows 256 bits", v.String())
	}
	return u, nil
}
