// Package circuitbreaker guards a flaky upstream with a
// closed → open → half-open circuit.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/mbd888/watchdog/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal: calls flow through
	StateOpen                  // Tripped: calls are skipped
	StateHalfOpen              // Probing: one call allowed to test recovery
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Defaults
const (
	DefaultThreshold = 5
	DefaultCooldown  = 30 * time.Second
)

// Breaker trips open after threshold consecutive failures of one upstream.
// After cooldown it lets a single probe through; the probe's outcome
// closes or reopens the circuit.
type Breaker struct {
	mu        sync.Mutex
	upstream  string
	state     State
	failures  int
	openedAt  time.Time
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// New creates a breaker for the named upstream.
func New(upstream string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		upstream:  upstream,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Upstream returns the guarded upstream's name.
func (b *Breaker) Upstream() string { return b.upstream }

// Allow reports whether a call should be attempted. An open circuit whose
// cooldown has elapsed moves to half-open and admits exactly one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false // probe in flight
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failed call. A failed probe reopens the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.open()
	case b.state == StateClosed && b.failures >= b.threshold:
		b.open()
	}
}

// Abandon releases a probe whose outcome is unknown, e.g. because the
// caller went away. The circuit returns to open and the next Allow probes again.
func (b *Breaker) Abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transition(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// caller must hold b.mu
func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

// caller must hold b.mu
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	metrics.OracleBreakerTransitionsTotal.WithLabelValues(b.upstream, from.String(), to.String()).Inc()
}
