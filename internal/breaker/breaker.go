package breaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"skuscan/internal/clock"
)

// ErrOpen is returned by Allow while a vendor is quarantined. It signals
// fast-fail to callers and is never itself counted as a vendor failure.
var ErrOpen = errors.New("circuit breaker open")

// State of a vendor's breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker quarantines a single vendor after a run of consecutive failures.
// Transitions:
//
//	CLOSED    -> OPEN       after threshold consecutive failures
//	OPEN      -> HALF_OPEN  first Allow after the cooldown; that caller is the probe
//	HALF_OPEN -> CLOSED     probe succeeds
//	HALF_OPEN -> OPEN       probe fails; cooldown restarts
//
// Exactly one probe is admitted at a time; concurrent callers in HALF_OPEN
// get ErrOpen until the probe resolves.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	clock     clock.Clock
	log       *zap.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(name string, threshold int, cooldown time.Duration, clk clock.Clock, log *zap.Logger) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clk,
		log:       log,
	}
}

func (b *Breaker) Name() string { return b.name }

// Allow asks permission for one vendor call. A nil return admits the call;
// the caller must then resolve it with exactly one of Success, Failure, or
// Cancel.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if b.clock.Now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		b.probing = true
		b.log.Info("circuit breaker probing vendor after cooldown",
			zap.String("vendor", b.name))
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// Success records a healthy vendor interaction and fully closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Closed {
		b.log.Info("circuit breaker closed",
			zap.String("vendor", b.name), zap.String("from", b.state.String()))
	}
	b.state = Closed
	b.failures = 0
	b.probing = false
	b.openedAt = time.Time{}
}

// Failure records a failed vendor interaction. The counter is cumulative
// across calls until a Success resets it, so a failed HALF_OPEN probe
// reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false
	if b.failures < b.threshold {
		return
	}
	if b.state != Open {
		b.log.Warn("circuit breaker opened",
			zap.String("vendor", b.name),
			zap.Int("consecutive_failures", b.failures),
			zap.Duration("cooldown", b.cooldown))
	}
	b.state = Open
	b.openedAt = b.clock.Now()
}

// Cancel releases an admitted call without judging vendor health, used when
// the client abandoned the request mid-flight. Without this a cancelled
// HALF_OPEN probe would pin the breaker with no probe ever resolving.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// Reset forces the breaker closed. Operator escape hatch.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Closed {
		b.log.Info("circuit breaker reset by operator", zap.String("vendor", b.name))
	}
	b.state = Closed
	b.failures = 0
	b.probing = false
	b.openedAt = time.Time{}
}

// Snapshot is a point-in-time view for the admin API and metrics.
type Snapshot struct {
	Vendor              string     `json:"vendor"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
	RetryAt             *time.Time `json:"retry_at,omitempty"`
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Vendor:              b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
	}
	if b.state == Open {
		opened := b.openedAt
		retry := b.openedAt.Add(b.cooldown)
		snap.OpenedAt = &opened
		snap.RetryAt = &retry
	}
	return snap
}

// CurrentState reports the live State for metrics gauges.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
