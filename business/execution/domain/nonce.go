package domain

import "github.com/ethereum/go-ethereum/common"

// NonceState is the lifecycle of one entry in the pending ledger.
type NonceState string

const (
	NonceStatePending  NonceState = "pending"
	NonceStateMined    NonceState = "mined"
	NonceStateDropped  NonceState = "dropped"
	NonceStateReplaced NonceState = "replaced"
)

// NonceEntry is one line of the append-only pending ledger: a nonce this
// process has submitted (or is about to), and what became of it.
type NonceEntry struct {
	Nonce        uint64
	TxHash       *common.Hash
	SubmittedAtMs int64
	State        NonceState
}
