package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/arbitrage/domain"
	executiondomain "github.com/fd1az/flashbot/business/execution/domain"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/asset"
	"github.com/fd1az/flashbot/internal/logger"
)

const estimatorTracerName = "github.com/fd1az/flashbot/business/arbitrage/app"

// EstimatorConfig tunes the cost and risk model C6 applies to every
// candidate.
type EstimatorConfig struct {
	AdversarialMoveBps uint32
	FeeBufferFactor    float64
	RiskMultiplier     float64
	MinNetProfitWei    *big.Int
	ExecutorAddress    string
}

// Estimator implements C6: it walks a seed's two-leg path with the
// configured input, assembles the four-bucket CostBreakdown, and applies
// the DEX-risk gates before a candidate is allowed to reach C7.
type Estimator struct {
	chain  ChainView
	gas    GasOracle
	cfg    EstimatorConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewEstimator constructs an Estimator.
func NewEstimator(chain ChainView, gas GasOracle, cfg EstimatorConfig, log logger.LoggerInterface) *Estimator {
	return &Estimator{chain: chain, gas: gas, cfg: cfg, logger: log, tracer: otel.Tracer(estimatorTracerName)}
}

// leg bundles a pool snapshot with the direction wei flow through it.
type leg struct {
	snapshot        *pooldomain.PoolSnapshot
	tokenInIsToken0 bool
}

func legsFor(seed domain.Seed) (buy, sell leg) {
	buy = leg{snapshot: seed.BuyLeg, tokenInIsToken0: seed.TokenInIsToken0}
	sell = leg{snapshot: seed.SellLeg, tokenInIsToken0: !seed.TokenInIsToken0}
	return buy, sell
}

func (l leg) effectiveFeeBps(bufferFactor float64) uint32 {
	fee := poolFeeBps(l.snapshot.Pool)
	if l.snapshot.Pool.VariableFeeRisk {
		fee = uint32(float64(fee) * (1 + bufferFactor))
	}
	return fee
}

func (l leg) tokenIn() common.Address {
	if l.tokenInIsToken0 {
		return l.snapshot.Pool.Token0
	}
	return l.snapshot.Pool.Token1
}

func (l leg) tokenOut() common.Address {
	if l.tokenInIsToken0 {
		return l.snapshot.Pool.Token1
	}
	return l.snapshot.Pool.Token0
}

// walk quotes the two-leg path for a given input, returning the final
// output after both swaps with the configured fee buffers applied.
func (e *Estimator) walk(seed domain.Seed, input *pooldomain.Uint256) (*pooldomain.Uint256, error) {
	buy, sell := legsFor(seed)

	out1, err := pooldomain.QuoteAmountOut(buy.snapshot, buy.tokenInIsToken0, input, buy.effectiveFeeBps(e.cfg.FeeBufferFactor))
	if err != nil {
		return nil, fmt.Errorf("arbitrage: buy leg quote: %w", err)
	}
	out2, err := pooldomain.QuoteAmountOut(sell.snapshot, sell.tokenInIsToken0, out1, sell.effectiveFeeBps(e.cfg.FeeBufferFactor))
	if err != nil {
		return nil, fmt.Errorf("arbitrage: sell leg quote: %w", err)
	}
	return out2, nil
}

// BuildProfitFunction returns a pure (no RPC) profit closure the sizer can
// call repeatedly, plus the one-time gas estimate folded into it. Gas cost
// does not vary meaningfully with input size (the calldata shape is fixed
// by the path, not the amount word), so it is fetched once up front
// instead of once per sizer iteration.
func (e *Estimator) BuildProfitFunction(ctx context.Context, seed domain.Seed, calldata []byte) (ProfitFunc, gasComponents, error) {
	providerFeeBps := e.chain.PreferredFlashLoanProvider().FeeBps

	estimate, err := e.gas.EstimateCost(ctx, e.cfg.ExecutorAddress, calldata, 2)
	if err != nil {
		return nil, gasComponents{}, fmt.Errorf("arbitrage: gas estimate: %w", err)
	}
	gc := gasComponents{totalCostWei: estimate.TotalCostWei, l1DataFeeWei: estimate.L1DataFeeWei}

	fn := func(x *big.Int) (*big.Int, error) {
		xWei, err := pooldomain.NewUint256FromBig(x)
		if err != nil {
			return nil, err
		}
		out, err := e.walk(seed, xWei)
		if err != nil {
			return nil, err
		}

		gross := new(big.Int).Sub(out.ToBig(), x)
		flashFee := new(big.Int).Mul(x, big.NewInt(int64(providerFeeBps)))
		flashFee.Div(flashFee, big.NewInt(10000))
		slippage := new(big.Int).Mul(out.ToBig(), big.NewInt(int64(e.cfg.AdversarialMoveBps)))
		slippage.Div(slippage, big.NewInt(10000))

		net := new(big.Int).Sub(gross, flashFee)
		net.Sub(net, slippage)
		net.Sub(net, gc.totalCostWei)
		return net, nil
	}

	return fn, gc, nil
}

type gasComponents struct {
	totalCostWei *big.Int
	l1DataFeeWei *big.Int
}

// Estimate finalizes a sized seed into a costed Candidate: it re-walks the
// path at the sized input, assembles the CostBreakdown, and applies the
// risk gates. gc is the gas estimate BuildProfitFunction already fetched,
// reused here so Estimate never issues a second gas RPC for the same
// candidate.
func (e *Estimator) Estimate(ctx context.Context, seed domain.Seed, sizedInput *big.Int, sizerFellBack bool, gc gasComponents) (*domain.Candidate, error) {
	_, span := e.tracer.Start(ctx, "arbitrage.estimate")
	defer span.End()

	inputUint, err := pooldomain.NewUint256FromBig(sizedInput)
	if err != nil {
		return nil, err
	}

	buy, _ := legsFor(seed)
	tokenInAddr := buy.tokenIn()
	inAsset, ok := e.chain.AssetFor(tokenInAddr)
	if !ok {
		return nil, fmt.Errorf("arbitrage: unregistered token %x", tokenInAddr)
	}

	out, err := e.walk(seed, inputUint)
	if err != nil {
		return &domain.Candidate{Seed: seed, Rejected: true, RejectReason: domain.RejectUnprofitable}, nil
	}

	gross := new(big.Int).Sub(out.ToBig(), sizedInput)
	grossProfit := asset.NewSignedAmount(inAsset, gross)

	providerFeeBps := e.chain.PreferredFlashLoanProvider().FeeBps
	flashFeeWei := new(big.Int).Mul(sizedInput, big.NewInt(int64(providerFeeBps)))
	flashFeeWei.Div(flashFeeWei, big.NewInt(10000))

	slippageWei := new(big.Int).Mul(out.ToBig(), big.NewInt(int64(e.cfg.AdversarialMoveBps)))
	slippageWei.Div(slippageWei, big.NewInt(10000))

	l2GasWei := new(big.Int).Sub(gc.totalCostWei, gc.l1DataFeeWei)
	if l2GasWei.Sign() < 0 {
		l2GasWei = big.NewInt(0)
	}

	costs := domain.CostBreakdown{
		FlashLoanFee: asset.NewAmount(inAsset, flashFeeWei),
		L2GasCost:    asset.NewAmount(inAsset, l2GasWei),
		L1DataFee:    asset.NewAmount(inAsset, gc.l1DataFeeWei),
		SlippageCost: asset.NewAmount(inAsset, slippageWei),
	}

	netProfit, err := grossProfit.Sub(asset.FromAmount(costs.Total()))
	if err != nil {
		return nil, fmt.Errorf("arbitrage: net profit: %w", err)
	}

	candidate := &domain.Candidate{
		Seed:          seed,
		Input:         inputUint,
		Steps:         e.BuildSteps(seed, inputUint),
		Costs:         costs,
		GrossProfit:   grossProfit,
		NetProfit:     netProfit,
		SizerFellBack: sizerFellBack,
		DetectedAtMs:  latestObservedAtMs(seed),
		BlockNumber:   lowestBlockNumber(seed),
	}

	e.applyRiskGates(candidate)

	span.SetAttributes(
		attribute.String("net_profit_wei", netProfit.Raw().String()),
		attribute.Bool("rejected", candidate.Rejected),
	)
	return candidate, nil
}

// applyRiskGates enforces the profit floor every candidate must clear
// (net_profit >= min_profit_threshold, equality accepted) and, on top of
// that, the DEX-specific buffer: any leg flagged fee_manipulation_risk
// requires net_profit to clear the floor by RiskMultiplier, not just meet it.
func (e *Estimator) applyRiskGates(c *domain.Candidate) {
	if c.NetProfit.IsNegative() {
		c.Rejected = true
		c.RejectReason = domain.RejectUnprofitable
		return
	}

	if c.NetProfit.Raw().Cmp(e.cfg.MinNetProfitWei) < 0 {
		c.Rejected = true
		c.RejectReason = domain.RejectBelowThreshold
		return
	}

	if !(c.Seed.BuyLeg.Pool.FeeManipulationRisk || c.Seed.SellLeg.Pool.FeeManipulationRisk) {
		return
	}

	threshold := new(big.Float).Mul(new(big.Float).SetInt(e.cfg.MinNetProfitWei), big.NewFloat(e.cfg.RiskMultiplier))
	thresholdWei, _ := threshold.Int(nil)

	if c.NetProfit.Raw().Cmp(thresholdWei) < 0 {
		c.Rejected = true
		c.RejectReason = domain.RejectRiskBufferNotMet
	}
}

// BuildSteps materializes the two-hop execution plan: the first step
// carries the full flash-loaned amount, the second carries zero so the
// executor contract uses its running balance. Exported so the orchestrator
// can encode a placeholder calldata blob for BuildProfitFunction's gas
// estimate before a candidate has been sized.
func (e *Estimator) BuildSteps(seed domain.Seed, input *pooldomain.Uint256) []executiondomain.SwapStep {
	buy, sell := legsFor(seed)
	return []executiondomain.SwapStep{
		{
			PoolAddress: buy.snapshot.Pool.Address,
			TokenIn:     buy.tokenIn(),
			TokenOut:    buy.tokenOut(),
			AmountIn:    input.ToBig(),
			ExtraData:   extraDataFor(buy.snapshot.Pool),
			DexKind:     string(buy.snapshot.Pool.DexKind),
		},
		{
			PoolAddress: sell.snapshot.Pool.Address,
			TokenIn:     sell.tokenIn(),
			TokenOut:    sell.tokenOut(),
			AmountIn:    big.NewInt(0),
			ExtraData:   extraDataFor(sell.snapshot.Pool),
			DexKind:     string(sell.snapshot.Pool.DexKind),
		},
	}
}

// latestObservedAtMs is the more recent of the two legs' observation
// times: the candidate is only as fresh as its most recently seen leg.
func latestObservedAtMs(seed domain.Seed) int64 {
	if seed.BuyLeg.ObservedAtMs > seed.SellLeg.ObservedAtMs {
		return seed.BuyLeg.ObservedAtMs
	}
	return seed.SellLeg.ObservedAtMs
}

// lowestBlockNumber is the more conservative of the two legs' observed
// block numbers: a lagging leg makes the whole candidate lag.
func lowestBlockNumber(seed domain.Seed) uint64 {
	if seed.BuyLeg.BlockNumber < seed.SellLeg.BlockNumber {
		return seed.BuyLeg.BlockNumber
	}
	return seed.SellLeg.BlockNumber
}

// extraDataFor encodes a pool's routing hint per its DEX kind: a
// right-padded uint24 fee tier for V3-style pools, empty bytes for
// V2-style pools. LB-style bin-step packing is left to the planner, which
// has access to the full token path rather than a single pool.
func extraDataFor(p *pooldomain.PoolDescriptor) []byte {
	if p.DexKind != pooldomain.DexKindV3Like || p.FeeTier == nil {
		return nil
	}
	buf := make([]byte, 32)
	fee := *p.FeeTier
	buf[29] = byte(fee >> 16)
	buf[30] = byte(fee >> 8)
	buf[31] = byte(fee)
	return buf
}
