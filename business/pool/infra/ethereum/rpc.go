package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/pool/app"
	"github.com/fd1az/flashbot/business/pool/domain"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/circuitbreaker"
)

const tracerName = "github.com/fd1az/flashbot/business/pool/infra/ethereum"

var _ app.RPC = (*RPC)(nil)

// RPC drives a live EVM node for raw pool-state reads. It never interprets
// a read beyond decoding it into the sum-typed domain.State.
type RPC struct {
	client   *ethclient.Client
	v2ABI    abi.ABI
	v3ABI    abi.ABI
	cbV2     *circuitbreaker.CircuitBreaker[[]byte]
	cbV3     *circuitbreaker.CircuitBreaker[[]byte]
	cbHead   *circuitbreaker.CircuitBreaker[uint64]
	tracer   trace.Tracer
}

// NewRPC constructs the pool RPC adapter around a connected ethclient.
func NewRPC(client *ethclient.Client) (*RPC, error) {
	v2ABI, err := abi.JSON(strings.NewReader(v2PairABI))
	if err != nil {
		return nil, fmt.Errorf("pool/infra/ethereum: failed to parse v2 pair ABI: %w", err)
	}
	v3ABI, err := abi.JSON(strings.NewReader(v3PoolABI))
	if err != nil {
		return nil, fmt.Errorf("pool/infra/ethereum: failed to parse v3 pool ABI: %w", err)
	}

	return &RPC{
		client: client,
		v2ABI:  v2ABI,
		v3ABI:  v3ABI,
		cbV2:   circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pool-v2-read")),
		cbV3:   circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pool-v3-read")),
		cbHead: circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("pool-head-block")),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// ReadV2 calls getReserves() on a constant-product pool.
func (r *RPC) ReadV2(ctx context.Context, pool *domain.PoolDescriptor) (domain.V2State, uint64, error) {
	ctx, span := r.tracer.Start(ctx, "pool.read_v2",
		trace.WithAttributes(attribute.String("pool", pool.Address.Hex())))
	defer span.End()

	callData, err := r.v2ABI.Pack("getReserves")
	if err != nil {
		span.RecordError(err)
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: encode getReserves: %w", err)
	}

	result, err := r.cbV2.Execute(func() ([]byte, error) {
		addr := pool.Address
		return r.client.CallContract(ctx, ethgo.CallMsg{To: &addr, Data: callData}, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, "getReserves call failed")
		return domain.V2State{}, 0, apperror.New(apperror.CodePoolReadError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("getReserves failed for pool %s", pool.Address.Hex())))
	}

	outputs, err := r.v2ABI.Unpack("getReserves", result)
	if err != nil {
		span.RecordError(err)
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: decode getReserves: %w", err)
	}
	if len(outputs) < 2 {
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: unexpected getReserves output length %d", len(outputs))
	}

	reserve0Big, ok := outputs[0].(*big.Int)
	if !ok {
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: reserve0 decode type mismatch")
	}
	reserve1Big, ok := outputs[1].(*big.Int)
	if !ok {
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: reserve1 decode type mismatch")
	}

	reserve0, err := domain.NewUint256FromBig(reserve0Big)
	if err != nil {
		return domain.V2State{}, 0, err
	}
	reserve1, err := domain.NewUint256FromBig(reserve1Big)
	if err != nil {
		return domain.V2State{}, 0, err
	}

	blockNumber, err := r.client.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.V2State{}, 0, fmt.Errorf("pool/infra/ethereum: block number after getReserves: %w", err)
	}

	span.SetStatus(codes.Ok, "read")
	return domain.V2State{Reserve0: reserve0, Reserve1: reserve1}, blockNumber, nil
}

// ReadV3 calls slot0() and liquidity() on a concentrated-liquidity pool.
func (r *RPC) ReadV3(ctx context.Context, pool *domain.PoolDescriptor) (domain.V3State, uint64, error) {
	ctx, span := r.tracer.Start(ctx, "pool.read_v3",
		trace.WithAttributes(attribute.String("pool", pool.Address.Hex())))
	defer span.End()

	slot0Data, err := r.v3ABI.Pack("slot0")
	if err != nil {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: encode slot0: %w", err)
	}
	liquidityData, err := r.v3ABI.Pack("liquidity")
	if err != nil {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: encode liquidity: %w", err)
	}

	addr := pool.Address

	slot0Result, err := r.cbV3.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, ethgo.CallMsg{To: &addr, Data: slot0Data}, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, "slot0 call failed")
		return domain.V3State{}, 0, apperror.New(apperror.CodePoolReadError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("slot0 failed for pool %s", pool.Address.Hex())))
	}

	liquidityResult, err := r.cbV3.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, ethgo.CallMsg{To: &addr, Data: liquidityData}, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, "liquidity call failed")
		return domain.V3State{}, 0, apperror.New(apperror.CodePoolReadError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("liquidity failed for pool %s", pool.Address.Hex())))
	}

	slot0Outputs, err := r.v3ABI.Unpack("slot0", slot0Result)
	if err != nil {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: decode slot0: %w", err)
	}
	if len(slot0Outputs) < 2 {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: unexpected slot0 output length %d", len(slot0Outputs))
	}

	sqrtPriceBig, ok := slot0Outputs[0].(*big.Int)
	if !ok {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: sqrtPriceX96 decode type mismatch")
	}
	tick, ok := slot0Outputs[1].(*big.Int)
	if !ok {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: tick decode type mismatch")
	}

	liquidityOutputs, err := r.v3ABI.Unpack("liquidity", liquidityResult)
	if err != nil {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: decode liquidity: %w", err)
	}
	if len(liquidityOutputs) < 1 {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: unexpected liquidity output length %d", len(liquidityOutputs))
	}
	liquidityBig, ok := liquidityOutputs[0].(*big.Int)
	if !ok {
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: liquidity decode type mismatch")
	}

	sqrtPriceX96, err := domain.NewUint256FromBig(sqrtPriceBig)
	if err != nil {
		return domain.V3State{}, 0, err
	}
	liquidity, err := domain.NewUint256FromBig(liquidityBig)
	if err != nil {
		return domain.V3State{}, 0, err
	}

	blockNumber, err := r.client.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.V3State{}, 0, fmt.Errorf("pool/infra/ethereum: block number after slot0: %w", err)
	}

	span.SetStatus(codes.Ok, "read")
	return domain.V3State{
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    liquidity,
		Tick:         int32(tick.Int64()),
	}, blockNumber, nil
}

// BlockNumber returns the chain's current head block.
func (r *RPC) BlockNumber(ctx context.Context) (uint64, error) {
	return r.cbHead.Execute(func() (uint64, error) {
		return r.client.BlockNumber(ctx)
	})
}
