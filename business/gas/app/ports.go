// Package app defines the gas oracle port and the failure-fallback policy
// shared by both chain-specific implementations.
package app

import (
	"context"

	"github.com/fd1az/flashbot/business/gas/domain"
)

// Estimate is re-exported at the app layer so callers don't need to import
// the domain package just to read a cost figure.
type Estimate = domain.Estimate

// Oracle estimates the wei cost of executing a candidate transaction.
// EstimateCost never returns an error that the orchestrator must treat as
// fatal: on any RPC failure, implementations fall back to a conservative
// path-length estimate and set Estimate.Fallback, logging a warning
// themselves.
type Oracle interface {
	EstimateCost(ctx context.Context, to string, data []byte, numSteps int) (Estimate, error)
}
