package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashbot/internal/asset"
)

func testAsset() *asset.Asset {
	addr := common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab") // WETH on Arbitrum
	return asset.NewAsset(asset.NewTokenAssetID(42161, addr), "WETH", 18)
}

func TestCostBreakdown_Total(t *testing.T) {
	a := testAsset()

	tests := []struct {
		name         string
		flashLoanFee int64
		l2Gas        int64
		l1Data       int64
		slippage     int64
		want         int64
	}{
		{"all_zero", 0, 0, 0, 0, 0},
		{"all_buckets_nonzero", 100, 200, 50, 25, 375},
		{"only_gas", 0, 1000, 500, 0, 1500},
		{"only_fees", 300, 0, 0, 75, 375},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CostBreakdown{
				FlashLoanFee: asset.NewAmountFromInt64(a, tt.flashLoanFee),
				L2GasCost:    asset.NewAmountFromInt64(a, tt.l2Gas),
				L1DataFee:    asset.NewAmountFromInt64(a, tt.l1Data),
				SlippageCost: asset.NewAmountFromInt64(a, tt.slippage),
			}
			got := c.Total().Raw()
			if got.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("Total() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestCandidate_IsProfitable(t *testing.T) {
	a := testAsset()

	tests := []struct {
		name     string
		net      int64
		rejected bool
		want     bool
	}{
		{"positive_net_not_rejected", 100, false, true},
		{"zero_net_not_rejected", 0, false, true},
		{"negative_net_not_rejected", -1, false, false},
		{"positive_net_but_rejected", 100, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Candidate{
				NetProfit: asset.NewSignedAmount(a, big.NewInt(tt.net)),
				Rejected:  tt.rejected,
			}
			if got := c.IsProfitable(); got != tt.want {
				t.Errorf("IsProfitable() = %v, want %v", got, tt.want)
			}
		})
	}
}
