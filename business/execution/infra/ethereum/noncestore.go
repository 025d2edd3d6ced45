package ethereum

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashbot/business/execution/app"
	"github.com/fd1az/flashbot/business/execution/domain"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/logger"
)

var _ app.NonceLedger = (*FileNonceLedger)(nil)
var _ app.ChainNonceSource = (*NonceReader)(nil)

// nonceLine is the on-disk JSON representation of a domain.NonceEntry, one
// per line of the ledger file.
type nonceLine struct {
	Nonce         uint64  `json:"nonce"`
	TxHash        *string `json:"tx_hash,omitempty"`
	SubmittedAtMs int64   `json:"submitted_at_ms"`
	State         string  `json:"state"`
}

// FileNonceLedger is C9: an append-only, fsync'd file recording every nonce
// this process has claimed. It is the single writer for the wallet's
// nonce; Reconcile and NextNonce both hold the ledger's lock for their
// entire duration so two goroutines can never race past each other onto
// the same nonce.
type FileNonceLedger struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	entries   []domain.NonceEntry
	lastNonce uint64
	hasLast   bool
	nowMs     func() int64
	logger    logger.LoggerInterface
}

// NewFileNonceLedger opens (creating if needed) the ledger file at path
// and loads its existing entries into memory.
func NewFileNonceLedger(path string, nowMs func() int64, log logger.LoggerInterface) (*FileNonceLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("execution: create ledger dir: %w", err)
	}

	ledger := &FileNonceLedger{path: path, nowMs: nowMs, logger: log}
	if err := ledger.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("execution: open ledger: %w", err)
	}
	ledger.file = f
	return ledger, nil
}

func (l *FileNonceLedger) load() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("execution: read ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw nonceLine
		if err := json.Unmarshal(line, &raw); err != nil {
			if l.logger != nil {
				l.logger.Warn(context.Background(), "nonce ledger: skipping malformed line",
					"line", lineNo, "error", err)
			}
			continue
		}
		entry := domain.NonceEntry{
			Nonce:         raw.Nonce,
			SubmittedAtMs: raw.SubmittedAtMs,
			State:         domain.NonceState(raw.State),
		}
		if raw.TxHash != nil {
			h := common.HexToHash(*raw.TxHash)
			entry.TxHash = &h
		}
		l.entries = append(l.entries, entry)
		if !l.hasLast || entry.Nonce >= l.lastNonce {
			l.lastNonce = entry.Nonce
			l.hasLast = true
		}
	}
	return scanner.Err()
}

// Reconcile resolves any entry still marked pending against the chain's
// reported transaction count: a pending nonce strictly below chainNonce
// (the next nonce the chain expects) has already been mined (by this
// process or a prior crashed one) and is marked mined rather than left
// dangling. Entries at or above chainNonce stay pending.
func (l *FileNonceLedger) Reconcile(ctx context.Context, chainNonce uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		e := &l.entries[i]
		if e.State == domain.NonceStatePending && e.Nonce < chainNonce {
			e.State = domain.NonceStateMined
			if err := l.appendLocked(*e); err != nil {
				return err
			}
		}
	}
	return nil
}

// NextNonce returns max(chainNonce, lastPersisted+1) and durably records a
// new pending entry for it before returning, the invariant that keeps the
// on-disk nonce monotonically non-decreasing across restarts.
func (l *FileNonceLedger) NextNonce(ctx context.Context, chainNonce uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := chainNonce
	if l.hasLast && l.lastNonce+1 > next {
		next = l.lastNonce + 1
	}

	entry := domain.NonceEntry{Nonce: next, SubmittedAtMs: l.nowMs(), State: domain.NonceStatePending}
	if err := l.appendLocked(entry); err != nil {
		return 0, apperror.Internal(apperror.CodeNonceConflict, "nonce ledger append", err)
	}
	l.entries = append(l.entries, entry)
	l.lastNonce = next
	l.hasLast = true
	return next, nil
}

// MarkResolved records a pending entry's terminal state once its outcome
// is known.
func (l *FileNonceLedger) MarkResolved(ctx context.Context, nonce uint64, txHash common.Hash, state domain.NonceState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := domain.NonceEntry{Nonce: nonce, SubmittedAtMs: l.nowMs(), State: state}
	if txHash != (common.Hash{}) {
		entry.TxHash = &txHash
	}
	if err := l.appendLocked(entry); err != nil {
		return err
	}
	l.entries = append(l.entries, entry)
	return nil
}

// appendLocked writes entry as one JSON line and fsyncs before returning;
// callers must hold l.mu.
func (l *FileNonceLedger) appendLocked(entry domain.NonceEntry) error {
	line := nonceLine{
		Nonce:         entry.Nonce,
		SubmittedAtMs: entry.SubmittedAtMs,
		State:         string(entry.State),
	}
	if entry.TxHash != nil {
		hex := entry.TxHash.Hex()
		line.TxHash = &hex
	}
	encoded, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("execution: encode ledger entry: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := l.file.Write(encoded); err != nil {
		return fmt.Errorf("execution: write ledger entry: %w", err)
	}
	return l.file.Sync()
}

// Close releases the ledger file handle.
func (l *FileNonceLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// NonceReader is a thin ChainNonceSource wrapper over ethclient, reading the
// wallet's pending transaction count.
type NonceReader struct {
	client *ethclient.Client
}

// NewNonceReader constructs a NonceReader.
func NewNonceReader(client *ethclient.Client) *NonceReader {
	return &NonceReader{client: client}
}

// PendingNonceAt returns the next nonce the chain expects from account,
// including transactions still in the mempool.
func (r *NonceReader) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return r.client.PendingNonceAt(ctx, account)
}
