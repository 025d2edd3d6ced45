// Package domain contains the core domain types for the pool reading context.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DexKind identifies the AMM invariant a pool implements.
type DexKind string

const (
	DexKindV2Like DexKind = "v2_like" // constant product, e.g. Uniswap V2 / Sushiswap
	DexKindV3Like DexKind = "v3_like" // concentrated liquidity, e.g. Uniswap V3 / Camelot V3
	DexKindLBLike DexKind = "lb_like" // liquidity book / bin-based, e.g. Trader Joe
)

// PoolDescriptor is the immutable identity of a registered pool. token0 is
// always the lexicographically smaller address, matching on-chain pair
// ordering, so callers never have to re-sort addresses downstream.
type PoolDescriptor struct {
	Label     string
	DexKind   DexKind
	Address   common.Address
	Token0    common.Address
	Token1    common.Address
	Decimals0 uint8
	Decimals1 uint8

	// FeeTier is basis-point*100 granularity (e.g. 500 = 0.05%) for V3-like
	// pools; nil for V2-like pools, whose fee is fixed by convention.
	FeeTier *uint32

	// Router is an optional execution hint; the flash-loan executor may
	// route through it instead of calling the pool directly.
	Router *common.Address

	// VariableFeeRisk flags DEXes (liquidity-book style) whose effective
	// fee can move between quote and execution.
	VariableFeeRisk bool

	// FeeManipulationRisk flags DEXes more exposed to fee-based MEV, which
	// gates candidates behind a stricter profit-buffer requirement.
	FeeManipulationRisk bool
}

// NewPoolDescriptor validates and constructs a PoolDescriptor, enforcing the
// token0 < token1 ordering invariant.
func NewPoolDescriptor(label string, dexKind DexKind, address, token0, token1 common.Address, decimals0, decimals1 uint8) (*PoolDescriptor, error) {
	if token0.Cmp(token1) >= 0 {
		return nil, fmt.Errorf("pool: token0 %s must be lexicographically less than token1 %s", token0.Hex(), token1.Hex())
	}
	return &PoolDescriptor{
		Label:     label,
		DexKind:   dexKind,
		Address:   address,
		Token0:    token0,
		Token1:    token1,
		Decimals0: decimals0,
		Decimals1: decimals1,
	}, nil
}

// PairKey is the canonical, order-independent identity of a token pair.
type PairKey struct {
	Token0 common.Address
	Token1 common.Address
}

// Pair returns the canonical pair key for this pool (token0 < token1 always,
// by construction).
func (p *PoolDescriptor) Pair() PairKey {
	return PairKey{Token0: p.Token0, Token1: p.Token1}
}

func (p *PoolDescriptor) String() string {
	return fmt.Sprintf("%s(%s)", p.Label, p.Address.Hex())
}
