package app

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/arbitrage/domain"
	pooldomain "github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

const detectorTracerName = "github.com/fd1az/flashbot/business/arbitrage/app"

// probeAmount is the fixed, asset-agnostic quantity used to compare leg
// prices before sizing: the detector only needs the *direction and
// magnitude* of the edge, not a profit-maximizing input, so any reasonably
// sized probe works as long as both legs are quoted with it.
var probeAmount = new(pooldomain.Uint256).SetUint64(1_000_000_000_000_000_000) // 1 unit at 18 decimals

// Detector implements C4: grouping the latest snapshot set by canonical
// pair and emitting a directed buy/sell seed for each pair whose best edge
// clears the configured threshold.
type Detector struct {
	deltaThresholdBps int64
	logger            logger.LoggerInterface
	tracer            trace.Tracer
}

// NewDetector constructs a Detector. deltaThresholdBps is the minimum
// edge, in basis points of the buy-leg effective price, required to emit a
// seed.
func NewDetector(deltaThresholdBps uint32, log logger.LoggerInterface) *Detector {
	return &Detector{
		deltaThresholdBps: int64(deltaThresholdBps),
		logger:            log,
		tracer:            otel.Tracer(detectorTracerName),
	}
}

// Detect groups snapshots by pair and returns one seed per pair whose best
// edge clears the threshold, plus a second slice of pairs that had a
// comparable edge but didn't clear it, so the caller can still surface an
// opportunity_rejected signal for them. Pairs with fewer than two live
// snapshots contribute nothing to either slice: there's no edge to compare.
func (d *Detector) Detect(ctx context.Context, snapshots []*pooldomain.PoolSnapshot) (seeds, belowThreshold []domain.Seed) {
	ctx, span := d.tracer.Start(ctx, "arbitrage.detect")
	defer span.End()

	groups := groupByPair(snapshots)
	seeds = make([]domain.Seed, 0, len(groups))
	for pair, members := range groups {
		if len(members) < 2 {
			continue
		}
		best, haveBest, ok := d.bestSeed(pair, members)
		if !haveBest {
			continue
		}
		if !ok {
			belowThreshold = append(belowThreshold, best)
			continue
		}
		seeds = append(seeds, best)
	}

	span.SetAttributes(
		attribute.Int("pairs", len(groups)),
		attribute.Int("seeds", len(seeds)),
		attribute.Int("below_threshold", len(belowThreshold)),
	)
	return seeds, belowThreshold
}

func groupByPair(snapshots []*pooldomain.PoolSnapshot) map[pooldomain.PairKey][]*pooldomain.PoolSnapshot {
	groups := make(map[pooldomain.PairKey][]*pooldomain.PoolSnapshot)
	for _, s := range snapshots {
		pair := s.Pool.Pair()
		groups[pair] = append(groups[pair], s)
	}
	return groups
}

// bestSeed finds the ordered (buy_leg, sell_leg) with maximum delta_bps
// among every pair of distinct pools quoting this token pair, applying the
// tie-break (lower buy-leg fee, then deeper sell-leg liquidity). haveBest
// reports whether any ordered pair could be quoted at all; ok reports
// whether that best edge clears the configured threshold.
func (d *Detector) bestSeed(pair pooldomain.PairKey, members []*pooldomain.PoolSnapshot) (best domain.Seed, haveBest, ok bool) {
	var bestDelta int64

	for _, buyLeg := range members {
		for _, sellLeg := range members {
			if buyLeg.Pool.Address == sellLeg.Pool.Address {
				continue
			}

			// tokenInIsToken0 fixes a trade direction: buy token1 with
			// token0 on buyLeg, then sell token1 for token0 on sellLeg.
			// The reverse direction is covered by the symmetric ordered
			// pair (sellLeg, buyLeg) elsewhere in this double loop, so
			// only one direction needs to be tried per ordered pair.
			delta, ok := effectiveDeltaBps(buyLeg, sellLeg, true)
			if !ok {
				continue
			}

			if !haveBest || d.isBetter(delta, buyLeg, sellLeg, bestDelta, best) {
				best = domain.Seed{
					Pair:            pair,
					BuyLeg:          buyLeg,
					SellLeg:         sellLeg,
					DeltaBps:        delta,
					TokenInIsToken0: true,
				}
				bestDelta = delta
				haveBest = true
			}
		}
	}

	if !haveBest {
		return domain.Seed{}, false, false
	}
	return best, true, bestDelta >= d.deltaThresholdBps
}

func (d *Detector) isBetter(delta int64, buyLeg, sellLeg *pooldomain.PoolSnapshot, bestDelta int64, best domain.Seed) bool {
	if delta != bestDelta {
		return delta > bestDelta
	}
	// Tie-break 1: lower buy-leg fee.
	buyFee, bestBuyFee := poolFeeBps(buyLeg.Pool), poolFeeBps(best.BuyLeg.Pool)
	if buyFee != bestBuyFee {
		return buyFee < bestBuyFee
	}
	// Tie-break 2: deeper sell-leg liquidity.
	return sellLegDepth(sellLeg).Cmp(sellLegDepth(best.SellLeg)) > 0
}

// poolFeeBps converts a pool's fee into the basis-points-out-of-10000 unit
// QuoteConstantProduct expects. FeeTier is stored at Uniswap's native
// parts-per-million granularity (500 = 0.05%), two orders of magnitude
// finer than a basis point, hence the /100.
func poolFeeBps(p *pooldomain.PoolDescriptor) uint32 {
	if p.FeeTier != nil {
		return *p.FeeTier / 100
	}
	return 0
}

// sellLegDepth is a coarse liquidity proxy used only for tie-breaking:
// the sum of both reserves for V2 pools, or liquidity for V3/LB pools.
func sellLegDepth(s *pooldomain.PoolSnapshot) *big.Int {
	switch st := s.State.(type) {
	case pooldomain.V2State:
		return new(big.Int).Add(st.Reserve0.ToBig(), st.Reserve1.ToBig())
	case pooldomain.V3State:
		return st.Liquidity.ToBig()
	default:
		return big.NewInt(0)
	}
}

// effectiveDeltaBps computes the basis-point edge of selling the buy leg's
// output on the sell leg, relative to the buy leg's effective price, using
// a fixed probe amount. Returns ok=false if either leg can't quote (e.g.
// zero reserves).
func effectiveDeltaBps(buyLeg, sellLeg *pooldomain.PoolSnapshot, tokenInIsToken0 bool) (int64, bool) {
	buyFee := poolFeeBps(buyLeg.Pool)
	sellFee := poolFeeBps(sellLeg.Pool)

	boughtAmount, err := pooldomain.QuoteAmountOut(buyLeg, tokenInIsToken0, probeAmount, buyFee)
	if err != nil {
		return 0, false
	}
	// The sell leg receives the buy leg's output token, which is the
	// non-input token on the buy leg and must match the sell leg's own
	// token-in side for the canonical pair ordering to make sense.
	soldBack, err := pooldomain.QuoteAmountOut(sellLeg, !tokenInIsToken0, boughtAmount, sellFee)
	if err != nil {
		return 0, false
	}

	if probeAmount.IsZero() {
		return 0, false
	}

	// delta_bps = (sold_back - probe) / probe * 10000, computed in
	// integer arithmetic with a signed result.
	diff := new(big.Int).Sub(soldBack.ToBig(), probeAmount.ToBig())
	diff.Mul(diff, big.NewInt(10000))
	diff.Div(diff, probeAmount.ToBig())
	return diff.Int64(), true
}
