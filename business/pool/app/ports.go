// Package app contains application services and port definitions for the
// pool reading context.
package app

import (
	"context"

	"github.com/fd1az/flashbot/business/pool/domain"
)

// RPC is the chain-facing port a Reader drives. Implementations issue the
// raw read-only calls a pool's kind requires and never interpret the
// result beyond decoding it.
type RPC interface {
	// ReadV2 calls getReserves() on a constant-product pool.
	ReadV2(ctx context.Context, pool *domain.PoolDescriptor) (domain.V2State, uint64, error)

	// ReadV3 calls slot0() and liquidity() on a concentrated-liquidity pool.
	ReadV3(ctx context.Context, pool *domain.PoolDescriptor) (domain.V3State, uint64, error)

	// BlockNumber returns the chain's current head block.
	BlockNumber(ctx context.Context) (uint64, error)
}
