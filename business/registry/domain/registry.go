// Package domain holds the chain-level reference data every other bounded
// context depends on: the executor address, the flash-loan sources, the
// token set, and the pool set, plus the current head block.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashbot/internal/asset"
)

// FlashLoanProvider identifies a source of uncollateralized liquidity
// available on this chain, ranked by the order it appears in configuration.
// The C6 cost estimator and the orchestrator always use the first provider
// in that order; token support and available liquidity are not checked.
type FlashLoanProvider struct {
	Name    string
	Address common.Address
	FeeBps  uint32
}

// TokenInfo is the registry's record of an ERC20 token's on-chain identity.
type TokenInfo struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// ChainRegistry is the validated, immutable view of load_chain_config's
// result: everything components C2 through C11 need to know about the
// chain they are trading on.
type ChainRegistry struct {
	ChainID         uint64
	Name            string
	ExecutorAddress common.Address
	GasModel        string

	FlashLoanProviders []FlashLoanProvider
	Tokens             []TokenInfo
	tokenByAddress     map[common.Address]TokenInfo

	Assets *asset.Registry
}

// New validates and assembles a ChainRegistry. It never trusts the caller
// not to hand it zero addresses or an empty provider list; those are fatal
// configuration errors, not runtime errors, so they are reported here
// rather than discovered mid-poll.
func New(chainID uint64, name string, executorAddress common.Address, gasModel string, providers []FlashLoanProvider, tokens []TokenInfo) (*ChainRegistry, error) {
	if executorAddress == (common.Address{}) {
		return nil, fmt.Errorf("registry: executor address cannot be zero")
	}
	if gasModel != "arbitrum" && gasModel != "generic" {
		return nil, fmt.Errorf("registry: unknown gas model %q", gasModel)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("registry: at least one flash loan provider is required")
	}
	for _, p := range providers {
		if p.Address == (common.Address{}) {
			return nil, fmt.Errorf("registry: flash loan provider %q has zero address", p.Name)
		}
	}

	assets := asset.NewRegistry()
	byAddress := make(map[common.Address]TokenInfo, len(tokens))
	for _, t := range tokens {
		if t.Address == (common.Address{}) {
			return nil, fmt.Errorf("registry: token %q has zero address", t.Symbol)
		}
		byAddress[t.Address] = t
		assets.Register(asset.NewAsset(asset.NewTokenAssetID(chainID, t.Address), t.Symbol, t.Decimals))
	}

	return &ChainRegistry{
		ChainID:            chainID,
		Name:               name,
		ExecutorAddress:    executorAddress,
		GasModel:           gasModel,
		FlashLoanProviders: providers,
		Tokens:             tokens,
		tokenByAddress:     byAddress,
		Assets:             assets,
	}, nil
}

// Token looks up a registered token by address.
func (r *ChainRegistry) Token(addr common.Address) (TokenInfo, bool) {
	t, ok := r.tokenByAddress[addr]
	return t, ok
}

// AssetFor looks up the asset.Asset backing a registered token, for
// callers that need wei-typed arithmetic rather than the raw TokenInfo.
func (r *ChainRegistry) AssetFor(addr common.Address) (*asset.Asset, bool) {
	return r.Assets.GetToken(r.ChainID, addr)
}

// PreferredFlashLoanProvider returns the first provider in configuration
// order. It does not check whether that provider supports a given token or
// holds enough liquidity for it, and no caller substitutes another one.
func (r *ChainRegistry) PreferredFlashLoanProvider() FlashLoanProvider {
	return r.FlashLoanProviders[0]
}
