package app

import (
	"context"
	"math/big"
	"testing"
	"time"
)

// parabolicProfit models a concave profit function peaking at peak, the
// shape every AMM constant-product/virtual-reserve profit curve takes:
// profit(x) = -(x - peak)^2 + height.
func parabolicProfit(peak, height *big.Int) ProfitFunc {
	return func(x *big.Int) (*big.Int, error) {
		diff := new(big.Int).Sub(x, peak)
		sq := new(big.Int).Mul(diff, diff)
		return new(big.Int).Sub(height, sq), nil
	}
}

func TestSizer_Size_ConvergesOnPeak(t *testing.T) {
	tests := []struct {
		name string
		peak *big.Int
	}{
		{"peak_near_midpoint", new(big.Int).Mul(big.NewInt(50), big.NewInt(1e18))},
		{"peak_near_lower_bound", big.NewInt(1_000_000_000_000_000)},
		{"peak_near_upper_bound", new(big.Int).Mul(big.NewInt(99), big.NewInt(1e18))},
	}

	cfg := SizerConfig{
		XMin:          big.NewInt(1e15),
		XMax:          new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		MaxIterations: 60,
		ToleranceBps:  1,
		Timeout:       time.Second,
		DefaultInput:  big.NewInt(1e18),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSizer(cfg, noopLogger())
			peak := tt.peak
			profitFn := parabolicProfit(peak, big.NewInt(1_000_000_000_000_000_000))

			result := s.Size(context.Background(), profitFn)
			if result.FellBack {
				t.Fatalf("Size() fell back unexpectedly")
			}

			tolerance := toleranceWindow(cfg.XMax, cfg.ToleranceBps)
			diff := new(big.Int).Sub(result.Input, peak)
			diff.Abs(diff)
			// ternary search converges to within a small multiple of the
			// configured tolerance window, not the window itself.
			maxDiff := new(big.Int).Mul(tolerance, big.NewInt(4))
			if diff.Cmp(maxDiff) > 0 {
				t.Errorf("Size() = %s, want within %s of peak %s (diff %s)", result.Input, maxDiff, peak, diff)
			}
		})
	}
}

func TestSizer_Size_FallsBackOnProfitFunctionError(t *testing.T) {
	cfg := DefaultSizerConfig()
	cfg.Timeout = time.Second
	s := NewSizer(cfg, noopLogger())

	erroringFn := func(x *big.Int) (*big.Int, error) {
		return nil, errFake
	}

	result := s.Size(context.Background(), erroringFn)
	if !result.FellBack {
		t.Fatal("Size() should have fallen back on profit_function error")
	}
	if result.Input.Cmp(cfg.DefaultInput) != 0 {
		t.Errorf("Size() fallback input = %s, want %s", result.Input, cfg.DefaultInput)
	}
}

func TestSizer_Size_FallsBackOnTimeout(t *testing.T) {
	cfg := DefaultSizerConfig()
	cfg.Timeout = 0 // expires immediately
	s := NewSizer(cfg, noopLogger())

	result := s.Size(context.Background(), parabolicProfit(big.NewInt(1e18), big.NewInt(1e18)))
	if !result.FellBack {
		t.Fatal("Size() should have fallen back on immediate timeout")
	}
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

var errFake = fakeError("boom")
