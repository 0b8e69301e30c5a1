package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every call through and counts consecutive failures.
	Closed State = iota
	// Open rejects calls until the open timeout has elapsed.
	Open
	// HalfOpen lets trial calls through; enough successes close the circuit, one failure reopens it.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected without being attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker.
type Settings struct {
	Name             string
	FailureThreshold uint32        // consecutive failures that trip the circuit
	SuccessThreshold uint32        // consecutive half-open successes that close it again
	OpenTimeout      time.Duration // how long the circuit stays open
	// OnStateChange is called synchronously, while the breaker lock is held.
	OnStateChange func(name string, from, to State)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Breaker is a consecutive-failure circuit breaker. The zero value is not usable; call New.
type Breaker struct {
	settings Settings

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// New creates a Breaker. Zero thresholds fall back to 1 and a zero timeout to 30s.
func New(s Settings) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &Breaker{settings: s, state: Closed}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.settings.Name }

// State returns the current state, moving from Open to HalfOpen if the timeout elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Execute runs fn unless the circuit is open. A non-nil error from fn counts as a failure.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	if b.state == Open {
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) after(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.setState(Open)
		}
	case HalfOpen:
		if !ok {
			b.setState(Open)
			return
		}
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			b.setState(Closed)
		}
	case Open:
		// a call admitted before the trip finished late; nothing to count
	}
}

// refresh assumes the lock is held.
func (b *Breaker) refresh() {
	if b.state == Open && b.settings.Now().Sub(b.openedAt) >= b.settings.OpenTimeout {
		b.setState(HalfOpen)
	}
}

// setState assumes the lock is held.
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == Open {
		b.openedAt = b.settings.Now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.settings.Name, from, to)
	}
}
