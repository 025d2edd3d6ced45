// Package ymlconfig assembles a validated domain.ChainRegistry out of the
// chain configuration loaded by internal/config (viper-backed YAML plus
// ARB_-prefixed environment overrides). This is the Go shape of
// load_chain_config(chain_id).
package ymlconfig

import (
	"fmt"

	"github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/config"
)

// BuildChainRegistry translates the loaded ChainConfig into the domain
// registry every other context depends on.
func BuildChainRegistry(cfg *config.ChainConfig) (*domain.ChainRegistry, error) {
	providers := make([]domain.FlashLoanProvider, 0, len(cfg.FlashLoanProviders))
	for _, p := range cfg.FlashLoanProviders {
		providers = append(providers, domain.FlashLoanProvider{
			Name:    p.Name,
			Address: p.AddressHex(),
			FeeBps:  p.FeeBps,
		})
	}

	tokens := make([]domain.TokenInfo, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, domain.TokenInfo{
			Symbol:   t.Symbol,
			Address:  t.AddressHex(),
			Decimals: t.Decimals,
		})
	}

	registry, err := domain.New(cfg.ChainID, cfg.Name, cfg.ExecutorAddressHex(), cfg.GasModel, providers, tokens)
	if err != nil {
		return nil, fmt.Errorf("ymlconfig: %w", err)
	}
	return registry, nil
}
