package app

import "testing"

func TestBreaker_OpensAfterMaxConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3)

	if b.Open() {
		t.Fatal("breaker should start closed")
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.Open() {
		t.Fatal("breaker should stay closed below the threshold")
	}

	b.RecordFailure()
	if !b.Open() {
		t.Fatal("breaker should open once failures reach the threshold")
	}
}

func TestBreaker_SuccessResetsCounterButNotPause(t *testing.T) {
	b := NewBreaker(2)
	b.RecordFailure()
	b.RecordFailure()
	if !b.Open() {
		t.Fatal("breaker should be open")
	}

	b.RecordSuccess()
	if b.ConsecutiveFailures() != 0 {
		t.Fatalf("consecutive failures = %d, want 0", b.ConsecutiveFailures())
	}
	if !b.Open() {
		t.Fatal("a success must not clear a tripped pause; only Resume does")
	}
}

func TestBreaker_Resume(t *testing.T) {
	b := NewBreaker(1)
	b.RecordFailure()
	if !b.Open() {
		t.Fatal("breaker should be open")
	}

	b.Resume()
	if b.Open() {
		t.Fatal("breaker should be closed after Resume")
	}
	if b.ConsecutiveFailures() != 0 {
		t.Fatalf("consecutive failures = %d, want 0", b.ConsecutiveFailures())
	}
}

func TestBreaker_SuccessBeforeAnyFailureIsNoop(t *testing.T) {
	b := NewBreaker(1)
	b.RecordSuccess()
	if b.Open() {
		t.Fatal("breaker should remain closed")
	}
}
