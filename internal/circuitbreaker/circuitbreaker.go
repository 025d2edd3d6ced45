// Package circuitbreaker wraps sony/gobreaker/v2 behind a generic,
// result-typed API so infra callers get a single Execute method regardless
// of the wrapped call's return type.
//
// This is an infra-resilience breaker: it protects individual outbound RPC
// calls (pool reads, gas oracle queries, transaction submission) from
// hammering a failing endpoint. It is deliberately separate from the
// execution engine's domain circuit breaker gate, which counts consecutive
// arbitrage-candidate failures and only clears via an operator's explicit
// resume() - a different policy than gobreaker's timed half-open probing.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config configures a CircuitBreaker instance.
type Config struct {
	Name            string
	MaxRequests     uint32        // requests allowed through while half-open
	Interval        time.Duration // cyclic reset of closed-state counters
	Timeout         time.Duration // time spent open before probing half-open
	FailureRatio    float64       // trip when failures/requests reaches this
	MinRequests     uint32        // minimum requests before ratio is evaluated
	OnStateChange   func(name string, from, to gobreaker.State)
}

// DefaultConfig returns sensible defaults for an RPC-backed dependency.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker[T] for a single result type T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a CircuitBreaker from Config.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker, returning gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests when the breaker is not allowing calls.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.cb.Execute(fn)
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Counts returns the current request/failure counters.
func (c *CircuitBreaker[T]) Counts() gobreaker.Counts {
	return c.cb.Counts()
}
