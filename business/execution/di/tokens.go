// Package di contains dependency injection tokens for the execution
// context: C7 the transaction planner, C8 the execution engine, and C9 the
// nonce ledger.
package di

import (
	"github.com/fd1az/flashbot/business/execution/app"
	"github.com/fd1az/flashbot/internal/di"
)

const (
	Planner = "execution.Planner"
	Breaker = "execution.Breaker"
	Engine  = "execution.Engine"
	Ledger  = "execution.NonceLedger"
)

// GetPlanner resolves the transaction planner from the registry.
func GetPlanner(sr di.ServiceRegistry) *app.Planner {
	return di.GetToken[*app.Planner](sr, Planner)
}

// GetBreaker resolves the domain circuit breaker from the registry.
func GetBreaker(sr di.ServiceRegistry) *app.Breaker {
	return di.GetToken[*app.Breaker](sr, Breaker)
}

// GetEngine resolves the execution engine from the registry.
func GetEngine(sr di.ServiceRegistry) *app.Engine {
	return di.GetToken[*app.Engine](sr, Engine)
}

// GetLedger resolves the nonce ledger from the registry.
func GetLedger(sr di.ServiceRegistry) app.NonceLedger {
	return di.GetToken[app.NonceLedger](sr, Ledger)
}
