package app

import "sync"

// Breaker is C8's domain circuit breaker gate: a consecutive-candidate-
// failure counter with a manual resume, distinct in kind from
// internal/circuitbreaker's gobreaker-backed RPC-resilience breaker (which
// trips and half-open-probes automatically). This one never self-heals; an
// operator decides when trading resumes.
type Breaker struct {
	mu                  sync.Mutex
	maxConsecutive      int
	consecutiveFailures int
	paused              bool
}

// NewBreaker constructs a Breaker that trips once consecutiveFailures
// reaches maxConsecutive.
func NewBreaker(maxConsecutive int) *Breaker {
	return &Breaker{maxConsecutive: maxConsecutive}
}

// Open reports whether the breaker is currently blocking submissions.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused || b.consecutiveFailures >= b.maxConsecutive
}

// RecordFailure increments the consecutive-failure counter, tripping the
// breaker once it reaches the configured maximum.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.maxConsecutive {
		b.paused = true
	}
}

// RecordSuccess resets the consecutive-failure counter on any confirmed
// execution; it does not clear an operator-initiated pause.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
}

// Resume clears both the failure counter and the paused flag, the only way
// the breaker reopens once tripped.
func (b *Breaker) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.paused = false
}

// ConsecutiveFailures reports the current streak, for logging and metrics.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
