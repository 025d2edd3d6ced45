package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/execution/app"
	"github.com/fd1az/flashbot/business/execution/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

const submitterTracerName = "github.com/fd1az/flashbot/business/execution/infra/ethereum"

const receiptPollInterval = 2 * time.Second

var _ app.Submitter = (*TxSubmitter)(nil)

// TxSubmitter signs and broadcasts prepared transactions, and polls for
// their receipts, decoding the executor's ArbitrageExecuted log into
// ground-truth profit on success.
type TxSubmitter struct {
	client     *ethclient.Client
	key        *ecdsa.PrivateKey
	eventTopic common.Hash
	logger     logger.LoggerInterface
	tracer     trace.Tracer
}

// NewTxSubmitter constructs a TxSubmitter that signs with key.
func NewTxSubmitter(client *ethclient.Client, key *ecdsa.PrivateKey, log logger.LoggerInterface) (*TxSubmitter, error) {
	parsed, err := parseExecutorABI()
	if err != nil {
		return nil, err
	}
	event, ok := parsed.Events[arbitrageExecutedEventName]
	if !ok {
		return nil, fmt.Errorf("execution: executorABI missing %s event", arbitrageExecutedEventName)
	}
	return &TxSubmitter{
		client:     client,
		key:        key,
		eventTopic: event.ID,
		logger:     log,
		tracer:     otel.Tracer(submitterTracerName),
	}, nil
}

// Submit signs tx with the configured key and broadcasts it.
func (s *TxSubmitter) Submit(ctx context.Context, tx *domain.PreparedTransaction, from common.Address) (common.Hash, error) {
	ctx, span := s.tracer.Start(ctx, "execution.submit",
		trace.WithAttributes(attribute.Int64("nonce", int64(tx.Nonce)), attribute.String("path", tx.PathLabel)))
	defer span.End()

	signed, err := s.signTransaction(tx)
	if err != nil {
		span.RecordError(err)
		return common.Hash{}, fmt.Errorf("execution: sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return common.Hash{}, fmt.Errorf("execution: broadcast: %w", err)
	}

	span.SetAttributes(attribute.String("tx_hash", signed.Hash().Hex()))
	span.SetStatus(codes.Ok, "broadcast")
	return signed.Hash(), nil
}

func (s *TxSubmitter) signTransaction(tx *domain.PreparedTransaction) (*types.Transaction, error) {
	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   tx.ChainID,
		Nonce:     tx.Nonce,
		GasTipCap: tx.Gas.MaxPriorityFeePerGas,
		GasFeeCap: tx.Gas.MaxFeePerGas,
		Gas:       tx.Gas.GasLimit,
		To:        &tx.To,
		Value:     tx.Value,
		Data:      tx.Data,
	})
	signer := types.NewLondonSigner(tx.ChainID)
	return types.SignTx(unsigned, signer, s.key)
}

// WaitForReceipt polls for txHash's receipt until ctx is done, decoding
// ArbitrageExecuted on success. A mined-but-reverted receipt is returned
// without a decoded revert reason: eth_getTransactionReceipt carries no
// revert payload, and re-simulating the already-mined call at its exact
// historical state is left to offline tooling rather than the hot path.
func (s *TxSubmitter) WaitForReceipt(ctx context.Context, txHash common.Hash) (*app.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "execution.wait_for_receipt",
		trace.WithAttributes(attribute.String("tx_hash", txHash.Hex())))
	defer span.End()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return s.buildReceipt(ctx, receipt)
		}
		if err != ethgo.NotFound {
			span.RecordError(err)
			return nil, fmt.Errorf("execution: fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "confirmation timeout")
			return nil, fmt.Errorf("execution: confirmation timeout waiting for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *TxSubmitter) buildReceipt(ctx context.Context, receipt *types.Receipt) (*app.Receipt, error) {
	out := &app.Receipt{
		Status:            receipt.Status,
		BlockNumber:       receipt.BlockNumber.Uint64(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
	}
	if receipt.Status != 1 {
		return out, nil
	}

	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != s.eventTopic {
			continue
		}
		out.Logs = append(out.Logs, domain.Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
		if out.GrossProfitWei == nil {
			if profit, ok := decodeArbitrageExecutedProfit(l.Data); ok {
				out.GrossProfitWei = profit
			}
		}
	}
	return out, nil
}

// decodeArbitrageExecutedProfit decodes the non-indexed (input, profit)
// tuple from an ArbitrageExecuted log's data field. Both are uint256 words,
// so profit is simply the second 32-byte word.
func decodeArbitrageExecutedProfit(data []byte) (*big.Int, bool) {
	if len(data) < 64 {
		return nil, false
	}
	return new(big.Int).SetBytes(data[32:64]), true
}
