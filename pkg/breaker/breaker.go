package breaker

import (
	"sync"
	"time"

	"github.com/c360/uistream/errors"
)

// State represents the circuit breaker state
type State int

// Possible breaker states
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of State
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

// Config holds circuit breaker thresholds
type Config struct {
	FailureThreshold         int           // Consecutive failures before the circuit opens
	RecoveryTimeout          time.Duration // Wait before probing an open circuit
	HalfOpenSuccessThreshold int           // Successes during probing before closing
}

// DefaultConfig returns sensible defaults for API circuit breaking
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         5,
		RecoveryTimeout:          30 * time.Second,
		HalfOpenSuccessThreshold: 2,
	}
}

// Breaker is a failure-tracking gate with Closed/Open/HalfOpen states.
// One instance is shared by every in-flight request to the same upstream;
// all methods are safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	cfg               Config
	state             State
	failures          int
	halfOpenSuccesses int
	openedAt          time.Time

	now      func() time.Time
	onChange func(State)
}

// Option configures a Breaker
type Option func(*Breaker)

// WithClock injects a clock for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange registers a callback invoked (outside the lock) on every
// state transition. Used to drive the breaker-state metric gauge.
func WithStateChange(fn func(State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New creates a circuit breaker with the given config
func New(cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = 2
	}

	b := &Breaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed. In the open state it returns a
// CircuitOpenError until RecoveryTimeout has elapsed, then transitions to
// half-open and permits the call. Half-open permits all concurrent probes;
// recovery is judged by their outcomes, not by limiting them to one.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateHalfOpen:
		b.mu.Unlock()
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
			b.transition(StateHalfOpen)
			b.halfOpenSuccesses = 0
			b.mu.Unlock()
			b.notify(StateHalfOpen)
			return nil
		}
		b.mu.Unlock()
		return errors.NewCircuitOpenError()
	default:
		b.mu.Unlock()
		return nil
	}
}

// RecordSuccess records a successful call outcome
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.failures = 0
		b.mu.Unlock()
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.HalfOpenSuccessThreshold {
			b.transition(StateClosed)
			b.failures = 0
			b.halfOpenSuccesses = 0
			b.mu.Unlock()
			b.notify(StateClosed)
			return
		}
		b.mu.Unlock()
	default:
		b.mu.Unlock()
	}
}

// RecordFailure records a failed call outcome. Any failure during half-open
// probing reopens the circuit immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()

	switch b.state {
	case StateHalfOpen:
		b.transition(StateOpen)
		b.openedAt = b.now()
		b.halfOpenSuccesses = 0
		b.mu.Unlock()
		b.notify(StateOpen)
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
			b.openedAt = b.now()
			b.mu.Unlock()
			b.notify(StateOpen)
			return
		}
		b.mu.Unlock()
	default:
		b.mu.Unlock()
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count in the closed state
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker back to closed with cleared counters
func (b *Breaker) Reset() {
	b.mu.Lock()
	changed := b.state != StateClosed
	b.transition(StateClosed)
	b.failures = 0
	b.halfOpenSuccesses = 0
	b.mu.Unlock()
	if changed {
		b.notify(StateClosed)
	}
}

// transition sets the state. Must be called with the lock held.
func (b *Breaker) transition(s State) {
	b.state = s
}

// notify invokes the state-change callback outside the lock
func (b *Breaker) notify(s State) {
	if b.onChange != nil {
		b.onChange(s)
	}
}
