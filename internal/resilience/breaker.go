package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by callers that reject work pre-flight
// because the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from closed to open.
	FailureThreshold int
	// Cooldown is the period of the open state until a trial call is
	// allowed through (half-open).
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes.
	OnStateChange func(name string, from, to State)

	// now is overridable for tests.
	now func() time.Time
}

// Breaker implements the circuit breaker pattern for the status
// authority. Closed allows all calls; after FailureThreshold consecutive
// failures it opens and denies everything until Cooldown elapses, then
// admits exactly one trial call. The trial's outcome decides between
// closed and open again.
type Breaker struct {
	name     string
	settings Settings

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trialTaken  bool
}

// New creates a circuit breaker with the given settings.
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.now == nil {
		settings.now = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
	}
}

// Name returns the name of the circuit breaker.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. In the open state it flips
// to half-open once the cooldown has elapsed and admits a single trial;
// further calls are denied until the trial's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.settings.now().Sub(b.lastFailure) >= b.settings.Cooldown {
			b.setState(StateHalfOpen)
			b.trialTaken = true
			return true
		}
		return false
	case StateHalfOpen:
		if b.trialTaken {
			return false
		}
		b.trialTaken = true
		return true
	}
	return false
}

// RecordSuccess notes a successful call. A half-open success closes the
// breaker and resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
	}
}

// RecordFailure notes a failed call. The Nth consecutive closed-state
// failure opens the breaker; a half-open failure reopens it and resets
// the failure timestamp.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.settings.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.settings.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// setState must be called with the mutex held.
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.trialTaken = false

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
