// Package jsonl implements C10's Store port as an append-only,
// fsync'd line-delimited JSON file, following the same
// load-skip-malformed-warn / single-writer-mutex shape as the execution
// context's nonce ledger.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fd1az/flashbot/business/store/app"
	"github.com/fd1az/flashbot/business/store/domain"
	"github.com/fd1az/flashbot/internal/logger"
)

var _ app.Store = (*Store)(nil)

// line is the on-disk JSON representation of a domain.TradeOutcome. Every
// wei-denominated field is string-encoded since a JSON number cannot hold
// a uint256-range integer without losing precision.
type line struct {
	TxHash      string `json:"tx_hash"`
	Timestamp   int64  `json:"timestamp"`
	BlockNumber uint64 `json:"block_number"`
	PathLabel   string `json:"path_label"`
	InputAmount string `json:"input_amount"`
	GrossProfit string `json:"gross_profit"`
	GasCost     string `json:"gas_cost"`
	L1DataFee   string `json:"l1_data_fee"`
	RevertCost  string `json:"revert_cost"`
	NetProfit   string `json:"net_profit"`
	Status      string `json:"status"`
}

// Store is C10: an append-only, fsync'd trade outcome ledger. Append is
// the only writer path and is expected to run from a single goroutine
// (the orchestrator's tick loop); Stats and Last only read the in-memory
// slice built at construction and kept current by Append.
type Store struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	outcomes []domain.TradeOutcome
	logger   logger.LoggerInterface
}

// New opens (creating if needed) the trade store file at path and loads
// its existing outcomes into memory.
func New(path string, log logger.LoggerInterface) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	s := &Store{path: path, logger: log}
	if err := s.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open trade store: %w", err)
	}
	s.file = f
	return s, nil
}

func (s *Store) load() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: read trade store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		outcome, err := decodeLine(raw)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn(context.Background(), "trade store: skipping malformed line",
					"line", lineNo, "error", err)
			}
			continue
		}
		s.outcomes = append(s.outcomes, outcome)
	}
	return scanner.Err()
}

// Append validates I2 and, on success, writes outcome as one JSON line
// and fsyncs before returning. A validation failure is a programming
// error in the caller that built the outcome, so it panics rather than
// returning an error a caller might silently swallow.
func (s *Store) Append(ctx context.Context, outcome domain.TradeOutcome) error {
	if err := outcome.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Error(ctx, "trade store: refusing inconsistent outcome", "error", err, "path_label", outcome.PathLabel)
		}
		panic(fmt.Sprintf("store: invariant violation: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(encodeLine(outcome))
	if err != nil {
		return fmt.Errorf("store: encode outcome: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := s.file.Write(encoded); err != nil {
		return fmt.Errorf("store: write outcome: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("store: sync outcome: %w", err)
	}

	s.outcomes = append(s.outcomes, outcome)
	return nil
}

// Stats aggregates every outcome currently in memory.
func (s *Store) Stats(ctx context.Context) (app.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return app.Summarize(s.outcomes), nil
}

// Last returns the n most recently appended outcomes, reverse
// chronological (most recent first).
func (s *Store) Last(ctx context.Context, n int) ([]domain.TradeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.outcomes) {
		n = len(s.outcomes)
	}
	out := make([]domain.TradeOutcome, n)
	for i := 0; i < n; i++ {
		out[i] = s.outcomes[len(s.outcomes)-1-i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampMs > out[j].TimestampMs })
	return out, nil
}

// Close releases the trade store's file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func encodeLine(o domain.TradeOutcome) line {
	return line{
		TxHash:      o.TxHash,
		Timestamp:   o.TimestampMs,
		BlockNumber: o.BlockNumber,
		PathLabel:   o.PathLabel,
		InputAmount: bigString(o.InputAmount),
		GrossProfit: bigString(o.GrossProfit),
		GasCost:     bigString(o.GasCost),
		L1DataFee:   bigString(o.L1DataFee),
		RevertCost:  bigString(o.RevertCost),
		NetProfit:   bigString(o.NetProfit),
		Status:      string(o.Status),
	}
}

func decodeLine(raw []byte) (domain.TradeOutcome, error) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return domain.TradeOutcome{}, err
	}

	inputAmount, err := parseBig(l.InputAmount)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("input_amount: %w", err)
	}
	grossProfit, err := parseBig(l.GrossProfit)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("gross_profit: %w", err)
	}
	gasCost, err := parseBig(l.GasCost)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("gas_cost: %w", err)
	}
	l1DataFee, err := parseBig(l.L1DataFee)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("l1_data_fee: %w", err)
	}
	revertCost, err := parseBig(l.RevertCost)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("revert_cost: %w", err)
	}
	netProfit, err := parseBig(l.NetProfit)
	if err != nil {
		return domain.TradeOutcome{}, fmt.Errorf("net_profit: %w", err)
	}

	return domain.TradeOutcome{
		TxHash:      l.TxHash,
		TimestampMs: l.Timestamp,
		BlockNumber: l.BlockNumber,
		PathLabel:   l.PathLabel,
		InputAmount: inputAmount,
		GrossProfit: grossProfit,
		GasCost:     gasCost,
		L1DataFee:   l1DataFee,
		RevertCost:  revertCost,
		NetProfit:   netProfit,
		Status:      domain.Status(l.Status),
	}, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
