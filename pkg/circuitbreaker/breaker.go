package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned when the breaker refuses a call without issuing it.
var ErrOpen = errors.New("circuit breaker is open")

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

type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
	Logger           *zap.Logger
}

// Breaker trips to open after FailureThreshold consecutive failures and
// refuses calls until Cooldown elapses. The first calls after the cooldown
// run in half-open state; SuccessThreshold consecutive successes close it
// again, any failure reopens it. The breaker never re-issues a call.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	logger           *zap.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		cooldown:         cfg.Cooldown,
		logger:           cfg.Logger,
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state != StateOpen
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.successThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.successes = 0
	switch b.state {
	case StateHalfOpen:
		b.transition(StateOpen)
		b.openedAt = time.Now()
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.transition(StateOpen)
			b.openedAt = time.Now()
		}
	}
}

// refresh moves an open breaker to half-open once the cooldown has elapsed.
// Caller holds the lock.
func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0

	if b.logger != nil {
		b.logger.Info("Circuit breaker state changed",
			zap.String("name", b.name),
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
		)
	}
}
