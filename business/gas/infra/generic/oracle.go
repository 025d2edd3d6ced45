// Package generic estimates gas cost for any EVM chain that doesn't expose
// Arbitrum's L1/L2 fee-splitting precompile: total_cost = gas_used *
// effective_gas_price, with no separate L1 data fee.
package generic

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/gas/app"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/cache"
	"github.com/fd1az/flashbot/internal/circuitbreaker"
	"github.com/fd1az/flashbot/internal/logger"
)

const tracerName = "github.com/fd1az/flashbot/business/gas/infra/generic"

var _ app.Oracle = (*Oracle)(nil)

// Oracle implements app.Oracle against a standard EVM node's
// eth_gasPrice/eth_estimateGas endpoints.
type Oracle struct {
	client      *ethclient.Client
	maxGasPrice *big.Int
	priceCache  *cache.Cache[string, *big.Int]
	cacheTTL    time.Duration
	cbPrice     *circuitbreaker.CircuitBreaker[*big.Int]
	cbEstimate  *circuitbreaker.CircuitBreaker[uint64]
	logger      logger.LoggerInterface
	tracer      trace.Tracer
}

// NewOracle constructs the generic gas oracle. maxGasPriceWei clamps the
// fetched price as a safety ceiling; nil disables the clamp.
func NewOracle(client *ethclient.Client, maxGasPriceWei *big.Int, log logger.LoggerInterface) *Oracle {
	return &Oracle{
		client:      client,
		maxGasPrice: maxGasPriceWei,
		priceCache:  cache.New[string, *big.Int](5 * time.Minute),
		cacheTTL:    12 * time.Second,
		cbPrice:     circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle-price")),
		cbEstimate:  circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("gas-oracle-estimate")),
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}
}

// EstimateCost fetches the current gas price and an eth_estimateGas call
// for the given transaction, falling back to a conservative path-length
// estimate if either RPC call fails.
func (o *Oracle) EstimateCost(ctx context.Context, to string, data []byte, numSteps int) (app.Estimate, error) {
	ctx, span := o.tracer.Start(ctx, "gas.generic.estimate",
		trace.WithAttributes(attribute.String("to", to), attribute.Int("data_len", len(data))))
	defer span.End()

	price, err := o.gasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		o.logger.Warn(ctx, "gas oracle: price fetch failed, falling back to path-length estimate", "error", err)
		return app.FallbackEstimate(numSteps, big.NewInt(1_000_000_000)), nil
	}

	gasLimit, err := o.estimateGas(ctx, to, data)
	if err != nil {
		span.RecordError(err)
		o.logger.Warn(ctx, "gas oracle: estimate failed, falling back to path-length estimate", "error", err)
		return app.FallbackEstimate(numSteps, price), nil
	}

	total := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), price)
	span.SetStatus(codes.Ok, "estimated")
	return app.Estimate{
		GasLimit:     gasLimit,
		TotalCostWei: total,
		L1DataFeeWei: big.NewInt(0),
		BaseFeeWei:   price,
		Fallback:     false,
	}, nil
}

func (o *Oracle) gasPrice(ctx context.Context) (*big.Int, error) {
	if cached, found := o.priceCache.Get(ctx, "current"); found {
		return cached, nil
	}

	wei, err := o.cbPrice.Execute(func() (*big.Int, error) {
		return o.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeGasOracleError,
			apperror.WithCause(err),
			apperror.WithContext("SuggestGasPrice failed"))
	}

	if o.maxGasPrice != nil && wei.Cmp(o.maxGasPrice) > 0 {
		o.logger.Warn(ctx, "gas price exceeds configured max, clamping", "wei", wei.String(), "max", o.maxGasPrice.String())
		wei = new(big.Int).Set(o.maxGasPrice)
	}

	o.priceCache.Set(ctx, "current", wei, o.cacheTTL)
	return wei, nil
}

func (o *Oracle) estimateGas(ctx context.Context, to string, data []byte) (uint64, error) {
	toAddr := common.HexToAddress(to)
	gas, err := o.cbEstimate.Execute(func() (uint64, error) {
		return o.client.EstimateGas(ctx, ethgo.CallMsg{To: &toAddr, Data: data})
	})
	if err != nil {
		return 0, fmt.Errorf("gas/infra/generic: estimate gas: %w", err)
	}
	// 10% safety margin, matching the node's own variance between
	// estimate time and inclusion time.
	return gas + gas/10, nil
}

// Close releases cached resources.
func (o *Oracle) Close() error {
	o.priceCache.Close()
	return nil
}
