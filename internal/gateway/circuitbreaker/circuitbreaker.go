// Package circuitbreaker guards a single payment provider endpoint,
// failing fast once the provider has produced a run of transport failures.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

// CircuitBreaker is a basic in-memory breaker for one provider endpoint.
// Declined payments are normal provider outcomes and must not be recorded
// as failures; only transport failures count.
type CircuitBreaker struct {
	mu sync.Mutex

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time

	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// New creates a CircuitBreaker with default settings.
func New() *CircuitBreaker {
	return NewWithSettings(defaultFailureThreshold, defaultOpenStateTimeout, defaultHalfOpenSuccessThreshold)
}

// NewWithSettings creates a CircuitBreaker with custom settings.
func NewWithSettings(failThreshold int, openTimeout time.Duration, halfOpenSuccess int) *CircuitBreaker {
	return &CircuitBreaker{
		state:                    Closed,
		failureThreshold:         failThreshold,
		openStateTimeout:         openTimeout,
		halfOpenSuccessThreshold: halfOpenSuccess,
	}
}

// Allow reports whether a request may be attempted. An Open circuit whose
// timeout has expired transitions to HalfOpen and allows the probe through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if time.Now().After(cb.openUntil) {
			cb.state = HalfOpen
			cb.consecutiveSuccesses = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		cb.state = Closed
		return true
	}
}

// RecordFailure records a transport failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = Open
			cb.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case HalfOpen:
		// A failed probe re-opens the circuit immediately.
		cb.state = Open
		cb.openUntil = time.Now().Add(cb.openStateTimeout)
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses = 0
	case Open:
		// Remains open; openUntil is not extended.
	}
}

// RecordSuccess records a completed provider round-trip.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		cb.consecutiveFailures = 0
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			cb.state = Closed
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
		}
	case Open:
		// Success only matters in Closed or HalfOpen.
	}
}

// GetState returns the current state without triggering transitions.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
