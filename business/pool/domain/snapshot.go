package domain

import "time"

// State is the sum type of a pool's on-chain reserves, implemented by
// V2State and V3State. Closed via the unexported marker method so no
// package outside domain can add a third variant by accident.
type State interface {
	isPoolState()
}

// V2State holds constant-product reserves, read from getReserves().
type V2State struct {
	Reserve0 *Uint256
	Reserve1 *Uint256
}

func (V2State) isPoolState() {}

// V3State holds concentrated-liquidity state, read from slot0() and
// liquidity().
type V3State struct {
	SqrtPriceX96 *Uint256 // u160
	Liquidity    *Uint256 // u128
	Tick         int32
}

func (V3State) isPoolState() {}

// PoolSnapshot is a single timestamped observation of a pool's state.
type PoolSnapshot struct {
	Pool          *PoolDescriptor
	BlockNumber   uint64
	ObservedAtMs  int64
	State         State
}

// IsFresh reports whether the snapshot was observed within maxAgeMs of now
// (in epoch milliseconds).
func (s *PoolSnapshot) IsFresh(nowMs int64, maxAgeMs int64) bool {
	return nowMs-s.ObservedAtMs <= maxAgeMs
}

// Age returns the snapshot's age as a time.Duration given the current time.
func (s *PoolSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.ObservedAtMs))
}

// PricePair groups the live snapshots observed for a canonical token pair
// during a single poll cycle. Rebuilt every poll; never retained across
// ticks.
type PricePair struct {
	Pair      PairKey
	Snapshots []*PoolSnapshot
}
