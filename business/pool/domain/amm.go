package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

const feeDenominatorBps = 10000

var q96 = new(Uint256).Lsh(uint256.NewInt(1), 96)

// QuoteConstantProduct computes the constant-product swap output for a given
// input, fee, and reserve pair:
//
//	amount_out = (amount_in * (10000 - fee_bps) * R_out) / (R_in*10000 + amount_in*(10000 - fee_bps))
func QuoteConstantProduct(reserveIn, reserveOut, amountIn *Uint256, feeBps uint32) (*Uint256, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("pool: zero reserve")
	}
	if feeBps >= feeDenominatorBps {
		return nil, fmt.Errorf("pool: fee_bps %d must be below %d", feeBps, feeDenominatorBps)
	}

	feeFactor := uint256.NewInt(uint64(feeDenominatorBps - feeBps))

	amountInWithFee, overflow := new(Uint256).MulOverflow(amountIn, feeFactor)
	if overflow {
		return nil, fmt.Errorf("pool: amount_in * fee_factor overflowed 256 bits")
	}

	numerator, overflow := new(Uint256).MulOverflow(amountInWithFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("pool: numerator overflowed 256 bits")
	}

	reserveInScaled, overflow := new(Uint256).MulOverflow(reserveIn, uint256.NewInt(feeDenominatorBps))
	if overflow {
		return nil, fmt.Errorf("pool: reserve_in * 10000 overflowed 256 bits")
	}

	denominator := new(Uint256).Add(reserveInScaled, amountInWithFee)
	if denominator.IsZero() {
		return nil, fmt.Errorf("pool: zero denominator")
	}

	return new(Uint256).Div(numerator, denominator), nil
}

// VirtualReservesV3 derives the V2-equivalent virtual reserves of a
// concentrated-liquidity position from its liquidity and sqrtPriceX96, per
// the spec's baseline approximation:
//
//	R_in_virtual  ≈ L * 2^96 / sqrt_price_x96   (token0-denominated)
//	R_out_virtual ≈ L * sqrt_price_x96 / 2^96   (token1-denominated)
//
// These are conservative relative to an exact tick-aware quoter: they never
// yield a higher amount-out than walking the real tick range would.
func VirtualReservesV3(liquidity, sqrtPriceX96 *Uint256) (virtualReserve0, virtualReserve1 *Uint256, err error) {
	if sqrtPriceX96.IsZero() {
		return nil, nil, fmt.Errorf("pool: zero sqrt price")
	}

	virtualReserve0, overflow := new(Uint256).MulDivOverflow(liquidity, q96, sqrtPriceX96)
	if overflow {
		return nil, nil, fmt.Errorf("pool: virtual reserve0 overflowed 256 bits")
	}

	virtualReserve1, overflow = new(Uint256).MulDivOverflow(liquidity, sqrtPriceX96, q96)
	if overflow {
		return nil, nil, fmt.Errorf("pool: virtual reserve1 overflowed 256 bits")
	}

	return virtualReserve0, virtualReserve1, nil
}

// QuoteAmountOut computes the swap output of a pool snapshot for a given
// input amount and direction, dispatching on the sum-typed state: V2 pools
// apply the constant-product formula directly to their real reserves; V3
// pools apply the same formula to virtual reserves derived from liquidity
// and sqrtPriceX96.
func QuoteAmountOut(s *PoolSnapshot, tokenInIsToken0 bool, amountIn *Uint256, feeBps uint32) (*Uint256, error) {
	switch st := s.State.(type) {
	case V2State:
		rIn, rOut := st.Reserve0, st.Reserve1
		if !tokenInIsToken0 {
			rIn, rOut = st.Reserve1, st.Reserve0
		}
		return QuoteConstantProduct(rIn, rOut, amountIn, feeBps)
	case V3State:
		vr0, vr1, err := VirtualReservesV3(st.Liquidity, st.SqrtPriceX96)
		if err != nil {
			return nil, err
		}
		rIn, rOut := vr0, vr1
		if !tokenInIsToken0 {
			rIn, rOut = vr1, vr0
		}
		return QuoteConstantProduct(rIn, rOut, amountIn, feeBps)
	default:
		return nil, fmt.Errorf("pool: unsupported state type %T", s.State)
	}
}
