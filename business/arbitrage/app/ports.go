// Package app contains the C4/C5/C6 application services: the opportunity
// detector, the input sizer, and the cost estimator, plus the ports they
// depend on.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	gasapp "github.com/fd1az/flashbot/business/gas/app"
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/asset"
)

// GasOracle is the subset of gas.app.Oracle the cost estimator drives.
// Declared locally so this package depends on an interface it owns, not on
// the gas context's concrete type.
type GasOracle interface {
	EstimateCost(ctx context.Context, to string, data []byte, numSteps int) (gasapp.Estimate, error)
}

// ChainView is the subset of registry state C6 needs: flash-loan provider
// terms and the asset registry for wei-typed cost accounting.
type ChainView interface {
	PreferredFlashLoanProvider() registrydomain.FlashLoanProvider
	Token(addr common.Address) (registrydomain.TokenInfo, bool)
	AssetFor(addr common.Address) (*asset.Asset, bool)
}
