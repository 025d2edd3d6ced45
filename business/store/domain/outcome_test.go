package domain

import (
	"math/big"
	"testing"
)

func TestTradeOutcome_Validate(t *testing.T) {
	tests := []struct {
		name        string
		gross       int64
		gas         int64
		l1          int64
		revert      int64
		net         int64
		wantInvalid bool
	}{
		{"all_zero", 0, 0, 0, 0, 0, false},
		{"confirmed_profit", 1000, 200, 50, 0, 750, false},
		{"reverted_loss", 0, 0, 0, 300, -300, false},
		{"mismatched_net", 1000, 200, 50, 0, 999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := TradeOutcome{
				GrossProfit: big.NewInt(tt.gross),
				GasCost:     big.NewInt(tt.gas),
				L1DataFee:   big.NewInt(tt.l1),
				RevertCost:  big.NewInt(tt.revert),
				NetProfit:   big.NewInt(tt.net),
			}
			err := o.Validate()
			if tt.wantInvalid && err == nil {
				t.Fatal("expected a validation error for an inconsistent outcome")
			}
			if !tt.wantInvalid && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
