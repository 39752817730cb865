package service

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// BreakerState is the circuit breaker lifecycle state
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// CircuitBreaker trips after consecutive failures and rejects calls
// until a cooldown elapses. The first call after cooldown probes the
// downstream: success closes the breaker, failure reopens it.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureThreshold int
	cooldown         time.Duration
	failures         int
	openedAt         time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a closed breaker that opens after
// failureThreshold consecutive failures and probes after cooldown
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker transitions
// to half-open once the cooldown has elapsed and admits a single probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cooldown {
			cb.state = BreakerHalfOpen
			log.Info("Circuit breaker half-open, probing")
			return true
		}
		return false
	case BreakerHalfOpen:
		// probe in flight
		return false
	}
	return false
}

// RecordSuccess resets the failure count and closes the breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != BreakerClosed {
		log.Info("Circuit breaker closed after successful probe")
	}
	cb.state = BreakerClosed
	cb.failures = 0
}

// RecordFailure counts a failure, opening the breaker at the threshold.
// A half-open probe failure reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
		log.WithField("failures", cb.failures).Warn("Circuit breaker opened")
	}
}

// State returns the current breaker state
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker unconditionally
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
}

// Do runs fn under the breaker, returning ErrCircuitOpen when rejected
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}
