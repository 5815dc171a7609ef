// Package resilience wraps outbound calls with timeout, bounded retry, a
// per-dependency circuit breaker, and a bounded concurrency pool.
package resilience

import (
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/metrics"
)

// State is a circuit breaker state.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
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

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that open the circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before allowing one probe.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the defaults used when config is zero.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second}
}

// Breaker is a per-dependency circuit breaker. All transitions are
// serialized under one mutex so concurrent failures cannot lose updates.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu             sync.Mutex
	state          State
	consecFailures int
	lastFailure    time.Time
	probeInFlight  bool
}

// NewBreaker creates a closed breaker for a named dependency.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{name: name, cfg: cfg, state: StateClosed}
}

// Name returns the dependency name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, applying the cooldown transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed. In half-open state exactly one
// probe is let through; concurrent callers are rejected until it settles.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(b.lastFailure) < b.cfg.Cooldown {
			return fmt.Errorf("%s: %w", b.name, domain.ErrCircuitOpen)
		}
		b.transition(StateHalfOpen)
		b.probeInFlight = true
		return nil

	case StateHalfOpen:
		if b.probeInFlight {
			return fmt.Errorf("%s: probe in flight: %w", b.name, domain.ErrCircuitOpen)
		}
		b.probeInFlight = true
		return nil

	default:
		return fmt.Errorf("%s: %w", b.name, domain.ErrCircuitOpen)
	}
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecFailures = 0
	b.probeInFlight = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failure; at the threshold the circuit opens. A
// half-open probe failure reopens immediately and restarts the cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecFailures++
	b.lastFailure = time.Now()
	b.probeInFlight = false

	switch b.state {
	case StateClosed:
		if b.consecFailures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	b.state = to
	metrics.BreakerTransitionsTotal.WithLabelValues(b.name, to.String()).Inc()
}

