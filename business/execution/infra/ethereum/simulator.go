package ethereum

import (
	"context"
	"errors"
	"fmt"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/execution/app"
	"github.com/fd1az/flashbot/business/execution/domain"
	"github.com/fd1az/flashbot/internal/circuitbreaker"
	"github.com/fd1az/flashbot/internal/logger"
)

const simulatorTracerName = "github.com/fd1az/flashbot/business/execution/infra/ethereum"

var _ app.Simulator = (*CallSimulator)(nil)

// CallSimulator runs C7's prepared transactions through eth_call, the
// simulation gate ahead of every broadcast.
type CallSimulator struct {
	client  *ethclient.Client
	encoder *ContractEncoder
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewCallSimulator constructs a CallSimulator.
func NewCallSimulator(client *ethclient.Client, encoder *ContractEncoder, log logger.LoggerInterface) *CallSimulator {
	return &CallSimulator{
		client:  client,
		encoder: encoder,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("execution-simulate")),
		logger:  log,
		tracer:  otel.Tracer(simulatorTracerName),
	}
}

// Simulate executes tx as an eth_call from from. A contract revert is
// reported as a non-nil RevertReason with a nil error; only a transport or
// node failure returns a non-nil error.
func (s *CallSimulator) Simulate(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (*domain.RevertReason, error) {
	ctx, span := s.tracer.Start(ctx, "execution.simulate",
		trace.WithAttributes(attribute.String("path", tx.PathLabel)))
	defer span.End()

	to := tx.To
	_, err := s.cb.Execute(func() ([]byte, error) {
		return s.client.CallContract(ctx, ethgo.CallMsg{
			From: from,
			To:   &to,
			Data: tx.Data,
		}, nil)
	})
	if err == nil {
		span.SetStatus(codes.Ok, "simulation succeeded")
		return nil, nil
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := extractRevertData(dataErr); ok {
			reason := s.encoder.DecodeRevert(data)
			span.SetStatus(codes.Ok, "simulation reverted")
			span.SetAttributes(attribute.String("revert_selector", reason.Selector))
			return &reason, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "simulation transport error")
	return nil, fmt.Errorf("execution: eth_call: %w", err)
}

// extractRevertData pulls the hex-encoded revert payload off a node's
// JSON-RPC data error, when one was supplied.
func extractRevertData(err rpc.DataError) ([]byte, bool) {
	raw, ok := err.ErrorData().(string)
	if !ok || raw == "" {
		return nil, false
	}
	data, decodeErr := decodeHexData(raw)
	if decodeErr != nil {
		return nil, false
	}
	return data, true
}
