package app

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/internal/logger"
)

// SizerConfig bounds the ternary search C5 runs over a seed's profit
// function.
type SizerConfig struct {
	XMin          *big.Int // minimum input, wei
	XMax          *big.Int // maximum input, wei
	MaxIterations int
	ToleranceBps  uint32 // convergence window as a fraction of XMax
	Timeout       time.Duration
	DefaultInput  *big.Int // conservative fallback input
}

// DefaultSizerConfig returns the spec's documented defaults for an 18-
// decimal base token.
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{
		XMin:          big.NewInt(1e16), // 0.01 units
		XMax:          new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		MaxIterations: 20,
		ToleranceBps:  1,
		Timeout:       100 * time.Millisecond,
		DefaultInput:  big.NewInt(1e18), // 1 unit
	}
}

// ProfitFunc returns the net profit in wei of trading input x, supplied by
// C6. Implementations must be safe to call repeatedly and cheaply; the
// sizer may call it dozens of times per candidate.
type ProfitFunc func(x *big.Int) (*big.Int, error)

// SizeResult is C5's output: either a converged optimal input or a
// fallback to a conservative default.
type SizeResult struct {
	Input      *big.Int
	FellBack   bool
	Iterations int
}

// Sizer implements C5: a unimodal ternary search over a candidate's
// profit function, replacing a fixed default input with the amount that
// locally maximizes net profit.
type Sizer struct {
	cfg    SizerConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewSizer constructs a Sizer with the given bounds and iteration budget.
func NewSizer(cfg SizerConfig, log logger.LoggerInterface) *Sizer {
	return &Sizer{cfg: cfg, logger: log, tracer: otel.Tracer(detectorTracerName)}
}

// Size runs ternary search on profitFn over [XMin, XMax]. Any error from
// profitFn, or the configured timeout firing, falls back to DefaultInput
// rather than propagating the failure: the orchestrator must still size
// the trade and is never allowed to skip it outright on a sizer error.
func (s *Sizer) Size(ctx context.Context, profitFn ProfitFunc) SizeResult {
	ctx, span := s.tracer.Start(ctx, "arbitrage.size")
	defer span.End()

	deadline := time.Now().Add(s.cfg.Timeout)
	lo := new(big.Int).Set(s.cfg.XMin)
	hi := new(big.Int).Set(s.cfg.XMax)

	convergenceUnit := toleranceWindow(s.cfg.XMax, s.cfg.ToleranceBps)

	iterations := 0
	for iterations < s.cfg.MaxIterations {
		if time.Now().After(deadline) {
			return s.fallback(span, iterations, "timeout")
		}
		select {
		case <-ctx.Done():
			return s.fallback(span, iterations, "context canceled")
		default:
		}

		width := new(big.Int).Sub(hi, lo)
		if width.Cmp(convergenceUnit) < 0 {
			break
		}

		third := new(big.Int).Div(width, big.NewInt(3))
		m1 := new(big.Int).Add(lo, third)
		m2 := new(big.Int).Sub(hi, third)

		p1, err := profitFn(m1)
		if err != nil {
			return s.fallback(span, iterations, "profit_function error")
		}
		p2, err := profitFn(m2)
		if err != nil {
			return s.fallback(span, iterations, "profit_function error")
		}
		iterations++

		if p1.Cmp(p2) < 0 {
			lo = m1
		} else {
			hi = m2
		}
	}

	mid := new(big.Int).Add(lo, hi)
	mid.Div(mid, big.NewInt(2))

	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Bool("fallback", false),
	)
	return SizeResult{Input: mid, FellBack: false, Iterations: iterations}
}

func (s *Sizer) fallback(span trace.Span, iterations int, reason string) SizeResult {
	s.logger.Warn(context.Background(), "sizer: falling back to default input", "reason", reason, "iterations", iterations)
	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Bool("fallback", true),
		attribute.String("fallback_reason", reason),
	)
	return SizeResult{Input: new(big.Int).Set(s.cfg.DefaultInput), FellBack: true, Iterations: iterations}
}

// toleranceWindow derives the convergence width from a basis-point
// tolerance of the upper bound, with a floor of 1 wei so a zero-tolerance
// configuration still terminates.
func toleranceWindow(xMax *big.Int, toleranceBps uint32) *big.Int {
	w := new(big.Int).Mul(xMax, big.NewInt(int64(toleranceBps)))
	w.Div(w, big.NewInt(10000))
	if w.Sign() == 0 {
		return big.NewInt(1)
	}
	return w
}
