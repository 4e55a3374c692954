// Package circuitbreaker implements a consecutive-failure breaker the
// transport can consult before dispatching. It is opt-in; the default client
// carries none.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the breaker's admission state.
type State int

// Breaker states.
const (
	// StateClosed admits all requests.
	StateClosed State = iota
	// StateOpen refuses all requests until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits probes; successes close, a failure reopens.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// Config tunes a Breaker.
type Config struct {
	// FailThreshold is the consecutive-failure count that opens the breaker.
	FailThreshold int
	// SuccessThreshold is the probe-success count that closes it again.
	SuccessThreshold int
	// Timeout is how long the breaker stays open before admitting probes.
	Timeout time.Duration
}

// DefaultConfig returns conservative settings: open after 5 consecutive
// failures, close after 2 probe successes, probe after 30 seconds.
func DefaultConfig() Config {
	return Config{FailThreshold: 5, SuccessThreshold: 2, Timeout: 30 * time.Second}
}

// Breaker tracks consecutive dispatch outcomes and refuses requests while
// open. Safe for concurrent use.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// New builds a closed breaker with the given config.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a request may proceed, transitioning an expired open
// breaker to half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return false
}

// Record feeds one dispatch outcome into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	case StateHalfOpen:
		if !success {
			b.state = StateOpen
			b.openedAt = b.now()
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
		}
	case StateOpen:
		// Outcomes recorded while open (in-flight stragglers) don't move it.
	}
}

// State returns the current admission state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears the counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
