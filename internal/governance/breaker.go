package governance

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the state of a circuit breaker.
type BreakerState string

const (
	// StateClosed allows calls through.
	StateClosed BreakerState = "closed"
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen BreakerState = "open"
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig defines the thresholds for circuit breaking.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// MaxProbes bounds the calls admitted in half-open state; that many
	// consecutive successes close the circuit again.
	MaxProbes int
}

// DefaultBreakerConfig returns the defaults used for the audit sink.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
		MaxProbes:   3,
	}
}

// Breaker implements the circuit breaker pattern for a single collaborator.
type Breaker struct {
	mu     sync.Mutex
	config BreakerConfig
	state  BreakerState

	consecutiveFailures  int
	consecutiveSuccesses int
	probes               int
	openUntil            time.Time
	now                  func() time.Time
}

// NewBreaker creates a circuit breaker with the provided configuration.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 3
	}
	return &Breaker{config: config, state: StateClosed, now: time.Now}
}

// Execute runs fn under breaker protection. When the circuit is open,
// ErrCircuitOpen is returned without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().After(b.openUntil) {
			b.transition(StateHalfOpen)
			b.probes++
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probes < b.config.MaxProbes {
			b.probes++
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.consecutiveFailures++
		b.consecutiveSuccesses = 0
		switch b.state {
		case StateHalfOpen:
			b.transition(StateOpen)
		case StateClosed:
			if b.consecutiveFailures >= b.config.MaxFailures {
				b.transition(StateOpen)
			}
		}
		return
	}

	b.consecutiveSuccesses++
	b.consecutiveFailures = 0
	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.config.MaxProbes {
		b.transition(StateClosed)
	}
}

func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	b.state = next
	b.probes = 0
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	if next == StateOpen {
		b.openUntil = b.now().Add(b.config.Cooldown)
	} else {
		b.openUntil = time.Time{}
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}
