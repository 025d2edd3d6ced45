package jsonl

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/fd1az/flashbot/business/store/domain"
)

func confirmedOutcome(t *testing.T, pathLabel string, net int64) domain.TradeOutcome {
	t.Helper()
	return domain.TradeOutcome{
		TxHash:      "0x" + pathLabel,
		TimestampMs: 1000,
		BlockNumber: 42,
		PathLabel:   pathLabel,
		InputAmount: big.NewInt(1_000_000),
		GrossProfit: big.NewInt(net),
		GasCost:     big.NewInt(0),
		L1DataFee:   big.NewInt(0),
		RevertCost:  big.NewInt(0),
		NetProfit:   big.NewInt(net),
		Status:      domain.StatusConfirmed,
	}
}

func TestStore_AppendAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.jsonl")

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Append(context.Background(), confirmedOutcome(t, "a->b", 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(context.Background(), confirmedOutcome(t, "c->d", 200)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Close()

	reopened, err := New(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats, err := reopened.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalAttempted != 2 {
		t.Fatalf("TotalAttempted after reload = %d, want 2", stats.TotalAttempted)
	}
	if stats.NetProfitTotal.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("NetProfitTotal = %s, want 300", stats.NetProfitTotal)
	}
}

func TestStore_LoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.jsonl")

	content := `{"tx_hash":"0xa","timestamp":1,"block_number":1,"path_label":"a","input_amount":"1","gross_profit":"100","gas_cost":"0","l1_data_fee":"0","revert_cost":"0","net_profit":"100","status":"confirmed"}
not valid json at all
{"tx_hash":"0xb","timestamp":2,"block_number":2,"path_label":"b","input_amount":"1","gross_profit":"200","gas_cost":"0","l1_data_fee":"0","revert_cost":"0","net_profit":"200","status":"confirmed"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalAttempted != 2 {
		t.Fatalf("TotalAttempted = %d, want 2 (malformed line skipped)", stats.TotalAttempted)
	}
}

func TestStore_Append_RefusesInconsistentOutcome(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.jsonl")
	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Append to panic on an outcome that violates net_profit = gross - gas - l1 - revert")
		}
	}()

	bad := confirmedOutcome(t, "broken", 100)
	bad.NetProfit = big.NewInt(999)
	_ = s.Append(context.Background(), bad)
}

func TestStore_Last_ReverseChronological(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.jsonl")
	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i, label := range []string{"first", "second", "third"} {
		o := confirmedOutcome(t, label, int64(i))
		o.TimestampMs = int64(i + 1)
		if err := s.Append(context.Background(), o); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	last, err := s.Last(context.Background(), 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("len(last) = %d, want 2", len(last))
	}
	if last[0].PathLabel != "third" || last[1].PathLabel != "second" {
		t.Errorf("last = [%s, %s], want [third, second]", last[0].PathLabel, last[1].PathLabel)
	}
}
