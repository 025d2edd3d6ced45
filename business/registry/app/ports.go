// Package app wires the chain registry and head tracker into the service
// every other bounded context resolves through dependency injection.
package app

import (
	"context"

	"github.com/fd1az/flashbot/business/registry/domain"
)

// HeadTracker keeps a live view of the chain head so the execution engine's
// staleness gate can compute block_lag without issuing an RPC call at gate
// time.
type HeadTracker interface {
	Subscribe(ctx context.Context) (<-chan *domain.HeadBlock, error)
	LatestBlock(ctx context.Context) (*domain.HeadBlock, error)
	BlockNumber() uint64
	State() domain.ConnectionState
	Close() error
}
