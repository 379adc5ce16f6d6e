package biz

import (
	"sync"
	"time"

	"CreditPulse/internal/model"
	pkglog "CreditPulse/pkg/log"
)

const (
	// breakerThreshold opens the circuit after this many consecutive failures
	breakerThreshold = 3
	// breakerRecovery is how long the circuit stays open before a probe is allowed
	breakerRecovery = 5 * time.Minute
)

// CircuitBreaker gates the poller's backend fetches in production. In
// development it is wired disabled so every failure surfaces immediately.
type CircuitBreaker struct {
	enabled bool
	log     *pkglog.LogHelper

	mu           sync.Mutex
	failCount    int
	isOpen       bool
	lastFailTime time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a breaker. A disabled breaker allows everything
// and never opens.
func NewCircuitBreaker(enabled bool, log *pkglog.LogHelper) *CircuitBreaker {
	return &CircuitBreaker{
		enabled: enabled,
		log:     log,
		now:     time.Now,
	}
}

// Allow reports whether a fetch may proceed. While open, requests are blocked
// until the recovery window has elapsed; the first call after the window is
// the probe.
func (b *CircuitBreaker) Allow() bool {
	if !b.enabled {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return true
	}
	if b.now().Sub(b.lastFailTime) < breakerRecovery {
		return false
	}
	return true
}

// RecordFailure counts a failed fetch and opens the circuit at the threshold.
func (b *CircuitBreaker) RecordFailure() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failCount++
	b.lastFailTime = b.now()
	if b.failCount >= breakerThreshold && !b.isOpen {
		b.isOpen = true
		b.log.Breaker("circuit opened",
			"fail_count", b.failCount,
			"recovery", breakerRecovery.String())
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isOpen {
		b.log.Breaker("circuit recovered", "fail_count", b.failCount)
	}
	b.failCount = 0
	b.isOpen = false
}

// State returns a snapshot for status endpoints and tests.
func (b *CircuitBreaker) State() model.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return model.CircuitState{
		IsOpen:       b.isOpen,
		FailCount:    b.failCount,
		LastFailTime: b.lastFailTime,
	}
}
