package app

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/execution/domain"
	gasapp "github.com/fd1az/flashbot/business/gas/app"
	registrydomain "github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

const plannerTracerName = "github.com/fd1az/flashbot/business/execution/app"

// PlannerConfig tunes the EIP-1559 gas plan C7 derives for every prepared
// transaction.
type PlannerConfig struct {
	ExecutorAddress    common.Address
	ChainID            *big.Int
	PriorityFeePerGas  *big.Int
	GasLimitMultiplier float64
}

// Planner implements C7: it turns a costed, profitable candidate into a
// PreparedTransaction ready for C8 to simulate and submit.
type Planner struct {
	cfg     PlannerConfig
	encoder Encoder
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewPlanner constructs a Planner.
func NewPlanner(cfg PlannerConfig, encoder Encoder, log logger.LoggerInterface) *Planner {
	return &Planner{cfg: cfg, encoder: encoder, logger: log, tracer: otel.Tracer(plannerTracerName)}
}

// Plan encodes candidate as the executor's calldata and assembles the gas
// plan. nonce is expected to already have been obtained from C9; Plan does
// not touch the nonce ledger itself.
func (p *Planner) Plan(ctx context.Context, candidate *Candidate, provider registrydomain.FlashLoanProvider, nonce uint64, estimate gasapp.Estimate) (*domain.PreparedTransaction, error) {
	ctx, span := p.tracer.Start(ctx, "execution.plan",
		trace.WithAttributes(attribute.Int64("nonce", int64(nonce))))
	defer span.End()

	if len(candidate.Steps) == 0 {
		return nil, fmt.Errorf("execution: candidate has no swap steps")
	}

	flashLoanToken := candidate.Steps[0].TokenIn
	flashLoanAmount := candidate.Input.ToBig()

	data, err := p.encoder.EncodeExecuteArbitrage(provider.Address, flashLoanToken, flashLoanAmount, candidate.Steps)
	if err != nil {
		return nil, fmt.Errorf("execution: encode calldata: %w", err)
	}

	gas := domain.GasPlan{
		MaxFeePerGas:         maxFeePerGas(estimate.BaseFeeWei, p.cfg.PriorityFeePerGas),
		MaxPriorityFeePerGas: p.cfg.PriorityFeePerGas,
		GasLimit:             applyMultiplier(estimate.GasLimit, p.cfg.GasLimitMultiplier),
	}

	tx := &domain.PreparedTransaction{
		To:                p.cfg.ExecutorAddress,
		Data:              data,
		Value:             big.NewInt(0),
		ChainID:           p.cfg.ChainID,
		Nonce:             nonce,
		Gas:               gas,
		Steps:             candidate.Steps,
		FlashLoanProvider: provider.Address,
		FlashLoanToken:    flashLoanToken,
		FlashLoanAmount:   flashLoanAmount,
		PathLabel:         candidate.PathLabel(),
		DetectedAtMs:      candidate.DetectedAtMs,
		BlockNumber:       candidate.BlockNumber,
	}

	span.SetAttributes(
		attribute.String("max_fee_per_gas", gas.MaxFeePerGas.String()),
		attribute.Int64("gas_limit", int64(gas.GasLimit)),
		attribute.String("path", tx.PathLabel),
	)
	return tx, nil
}

// maxFeePerGas implements max_fee_per_gas = 2 * base_fee + priority_fee.
func maxFeePerGas(baseFee, priorityFee *big.Int) *big.Int {
	fee := new(big.Int).Mul(baseFee, big.NewInt(2))
	return fee.Add(fee, priorityFee)
}

// applyMultiplier scales a gas estimate by the configured safety margin,
// rounding up so the limit never falls short of the true usage.
func applyMultiplier(gasLimit uint64, multiplier float64) uint64 {
	return uint64(math.Ceil(float64(gasLimit) * multiplier))
}
