// Package circuitbreaker guards the external price oracle. When the oracle
// keeps failing, the breaker opens and price lookups fail fast for a while
// instead of burning the rate budget on a dead provider.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	probeSuccess  int
	maxFailures   int
	probeRequired int
	cooldown      time.Duration
	openedAt      time.Time

	nowFn func() time.Time
}

// New creates a breaker that opens after maxFailures consecutive failures,
// stays open for cooldown, then closes again after probeRequired successful
// probe calls.
func New(maxFailures, probeRequired int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if probeRequired <= 0 {
		probeRequired = 2
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		state:         StateClosed,
		maxFailures:   maxFailures,
		probeRequired: probeRequired,
		cooldown:      cooldown,
		nowFn:         time.Now,
	}
}

// Do runs fn if the breaker admits the call and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the current state, promoting open → half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.nowFn().Sub(b.openedAt) > b.cooldown {
		b.state = StateHalfOpen
		b.probeSuccess = 0
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.nowFn().Sub(b.openedAt) > b.cooldown {
			b.state = StateHalfOpen
			b.probeSuccess = 0
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state == StateHalfOpen {
		b.probeSuccess++
		if b.probeSuccess >= b.probeRequired {
			b.state = StateClosed
			b.probeSuccess = 0
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.nowFn()
	case StateClosed:
		if b.failures >= b.maxFailures {
			b.state = StateOpen
			b.openedAt = b.nowFn()
		}
	}
}

// SetNowFunc overrides the breaker clock. Test hook.
func (b *Breaker) SetNowFunc(fn func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFn = fn
}
