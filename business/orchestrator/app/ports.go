// Package app implements C11, the pipeline orchestrator: a single
// cooperative scheduler that drives C2 through C8 and C10 every poll tick.
package app

import (
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
)

// ChainView is the subset of registry state the scheduler needs to hand
// the execution engine a flash-loan provider. Satisfied directly by
// *registrydomain.ChainRegistry.
type ChainView interface {
	PreferredFlashLoanProvider() registrydomain.FlashLoanProvider
}
