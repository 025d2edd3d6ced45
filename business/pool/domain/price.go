package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

// DefaultPriceScale is the number of fractional digits normalized prices
// carry, matching internal/asset.PricePrecision so the two fixed-point
// representations stay interchangeable at reporting boundaries.
const DefaultPriceScale = 18

var q192 = new(Uint256).Lsh(uint256.NewInt(1), 192)

func pow10(n uint8) *Uint256 {
	return new(Uint256).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

// NormalizedPriceV2 computes the quote-per-base price of a constant-product
// pool's reserves at a given fixed-point scale, entirely in integer math:
//
//	price = (reserve1 * 10^decimals0 * 10^scale) / (reserve0 * 10^decimals1)
func NormalizedPriceV2(reserve0, reserve1 *Uint256, decimals0, decimals1 uint8, scale uint8) (*Uint256, error) {
	if reserve0.IsZero() {
		return nil, fmt.Errorf("pool: zero base reserve")
	}

	denom, overflow := new(Uint256).MulOverflow(reserve0, pow10(decimals1))
	if overflow {
		return nil, fmt.Errorf("pool: reserve0 decimal scaling overflowed 256 bits")
	}

	numeratorExp := uint8(int(decimals0) + int(scale))
	result, overflow := new(Uint256).MulDivOverflow(reserve1, pow10(numeratorExp), denom)
	if overflow {
		return nil, fmt.Errorf("pool: v2 price derivation overflowed 256 bits")
	}
	return result, nil
}

// NormalizedPriceV3 computes the quote-per-base price of a concentrated-
// liquidity pool's sqrtPriceX96 at a given fixed-point scale, using a
// 512-bit-safe intermediate product for the square (sqrtPriceX96 can be up
// to 160 bits, so squaring it does not fit a 256-bit register directly):
//
//	price = (sqrt_price_x96 / 2^96)^2 * 10^(decimals0 - decimals1)
func NormalizedPriceV3(sqrtPriceX96 *Uint256, decimals0, decimals1 uint8, scale uint8) (*Uint256, error) {
	if sqrtPriceX96.IsZero() {
		return nil, fmt.Errorf("pool: zero sqrt price")
	}

	// raw = sqrtPriceX96^2 / 2^192, the token1-per-token0 ratio in the
	// pool's raw (smallest-unit) terms, with no decimal or scale adjustment
	// yet applied.
	raw, overflow := new(Uint256).MulDivOverflow(sqrtPriceX96, sqrtPriceX96, q192)
	if overflow {
		return nil, fmt.Errorf("pool: v3 price derivation overflowed 256 bits")
	}

	decimalExp := int(decimals0) - int(decimals1) + int(scale)
	if decimalExp >= 0 {
		scaled, overflow := new(Uint256).MulOverflow(raw, pow10(uint8(decimalExp)))
		if overflow {
			return nil, fmt.Errorf("pool: v3 decimal scaling overflowed 256 bits")
		}
		return scaled, nil
	}
	return new(Uint256).Div(raw, pow10(uint8(-decimalExp))), nil
}

// InverseFixedPoint inverts a fixed-point price at the given scale:
// inverse = (10^scale)^2 / price.
func InverseFixedPoint(price *Uint256, scale uint8) (*Uint256, error) {
	if price.IsZero() {
		return nil, fmt.Errorf("pool: cannot invert a zero price")
	}
	precision := pow10(scale)
	precisionSquared, overflow := new(Uint256).MulOverflow(precision, precision)
	if overflow {
		return nil, fmt.Errorf("pool: price inversion overflowed 256 bits")
	}
	return new(Uint256).Div(precisionSquared, price), nil
}

// NormalizedPrice derives the quote-per-base price for a snapshot's state,
// dispatching on the concrete sum-type variant.
func NormalizedPrice(s *PoolSnapshot, scale uint8) (*Uint256, error) {
	switch st := s.State.(type) {
	case V2State:
		return NormalizedPriceV2(st.Reserve0, st.Reserve1, s.Pool.Decimals0, s.Pool.Decimals1, scale)
	case V3State:
		return NormalizedPriceV3(st.SqrtPriceX96, s.Pool.Decimals0, s.Pool.Decimals1, scale)
	default:
		return nil, fmt.Errorf("pool: unsupported state type %T", s.State)
	}
}

// InversePrice derives the base-per-quote price, the reciprocal of
// NormalizedPrice.
func InversePrice(s *PoolSnapshot, scale uint8) (*Uint256, error) {
	price, err := NormalizedPrice(s, scale)
	if err != nil {
		return nil, err
	}
	return InverseFixedPoint(price, scale)
}
