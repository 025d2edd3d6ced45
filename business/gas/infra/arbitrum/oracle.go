// Package arbitrum estimates gas cost via the gasEstimateComponents call of
// Arbitrum's NodeInterface precompile, which splits a transaction's cost into an L2 execution component and an
// L1 calldata-posting component.
package arbitrum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/gas/app"
	"github.com/fd1az/flashbot/business/gas/domain"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/circuitbreaker"
	"github.com/fd1az/flashbot/internal/logger"
)

const tracerName = "github.com/fd1az/flashbot/business/gas/infra/arbitrum"

// gasEstimateComponentsABI exposes NodeInterface's
// gasEstimateComponents(address to, bool contractCreation, bytes data).
const gasEstimateComponentsABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "bool", "name": "contractCreation", "type": "bool"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "gasEstimateComponents",
		"outputs": [
			{"internalType": "uint64", "name": "gasEstimate", "type": "uint64"},
			{"internalType": "uint64", "name": "gasEstimateForL1", "type": "uint64"},
			{"internalType": "uint256", "name": "baseFee", "type": "uint256"},
			{"internalType": "uint256", "name": "l1BaseFeeEstimate", "type": "uint256"}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

var _ app.Oracle = (*Oracle)(nil)

// Oracle implements app.Oracle against the Arbitrum node interface
// precompile. Failures always fall back to app.FallbackEstimate rather
// than propagating, per the gas-oracle error policy.
type Oracle struct {
	client     *ethclient.Client
	precompile common.Address
	abi        abi.ABI
	cb         *circuitbreaker.CircuitBreaker[[]byte]
	logger     logger.LoggerInterface
	tracer     trace.Tracer
}

// NewOracle constructs the Arbitrum gas oracle. precompile is the
// NodeInterface address (0x...c8 on Arbitrum).
func NewOracle(client *ethclient.Client, precompile common.Address, log logger.LoggerInterface) (*Oracle, error) {
	parsed, err := abi.JSON(strings.NewReader(gasEstimateComponentsABI))
	if err != nil {
		return nil, fmt.Errorf("gas/infra/arbitrum: parse abi: %w", err)
	}
	return &Oracle{
		client:     client,
		precompile: precompile,
		abi:        parsed,
		cb:         circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("gas-oracle-arbitrum")),
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// EstimateCost calls gasEstimateComponents and decomposes the result using
// the Arbitrum-specific formula: l2_cost = (total_gas - l1_gas) *
// l2_base_fee, l1_cost = l1_gas * l2_base_fee (the node interface bills
// the L1 share in L2 base-fee units, not via l1BaseFeeEstimate).
func (o *Oracle) EstimateCost(ctx context.Context, to string, data []byte, numSteps int) (app.Estimate, error) {
	ctx, span := o.tracer.Start(ctx, "gas.arbitrum.estimate",
		trace.WithAttributes(attribute.String("to", to), attribute.Int("data_len", len(data))))
	defer span.End()

	components, err := o.gasComponents(ctx, to, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gasEstimateComponents failed, using fallback")
		o.logger.Warn(ctx, "gas oracle: arbitrum estimate failed, falling back to path-length estimate",
			"error", err, "to", to)
		fallbackPrice := big.NewInt(100_000_000) // 0.1 gwei, conservative Arbitrum floor
		return app.FallbackEstimate(numSteps, fallbackPrice), nil
	}

	estimate := app.Estimate{
		GasLimit:     components.TotalGas,
		TotalCostWei: components.TotalCostWei(),
		L1DataFeeWei: components.L1CostWei(),
		BaseFeeWei:   components.L2BaseFeeWei,
		Fallback:     false,
	}
	span.SetStatus(codes.Ok, "estimated")
	return estimate, nil
}

func (o *Oracle) gasComponents(ctx context.Context, to string, data []byte) (domain.CostComponents, error) {
	callData, err := o.abi.Pack("gasEstimateComponents", common.HexToAddress(to), false, data)
	if err != nil {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: encode: %w", err)
	}

	result, err := o.cb.Execute(func() ([]byte, error) {
		precompile := o.precompile
		return o.client.CallContract(ctx, ethgo.CallMsg{To: &precompile, Data: callData}, nil)
	})
	if err != nil {
		return domain.CostComponents{}, apperror.New(apperror.CodeGasOracleError,
			apperror.WithCause(err),
			apperror.WithContext("gasEstimateComponents call failed"))
	}

	outputs, err := o.abi.Unpack("gasEstimateComponents", result)
	if err != nil {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: decode: %w", err)
	}
	if len(outputs) < 4 {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: unexpected output length %d", len(outputs))
	}

	totalGas, ok := outputs[0].(uint64)
	if !ok {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: gasEstimate decode type mismatch")
	}
	l1Gas, ok := outputs[1].(uint64)
	if !ok {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: gasEstimateForL1 decode type mismatch")
	}
	baseFee, ok := outputs[2].(*big.Int)
	if !ok {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: baseFee decode type mismatch")
	}
	l1BaseFeeEstimate, ok := outputs[3].(*big.Int)
	if !ok {
		return domain.CostComponents{}, fmt.Errorf("gas/infra/arbitrum: l1BaseFeeEstimate decode type mismatch")
	}

	if l1Gas > totalGas {
		// Defensive clamp: a malformed or adversarial node response must
		// never drive L2CostWei negative.
		l1Gas = totalGas
	}

	return domain.CostComponents{
		TotalGas:             totalGas,
		L1Gas:                l1Gas,
		L2BaseFeeWei:         baseFee,
		L1BaseFeeEstimateWei: l1BaseFeeEstimate,
	}, nil
}
