package resilience

import (
	"context"
	"sync"
	"time"

	"productstudio/internal/domain"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

const (
	DefaultThreshold = 5
	DefaultTimeout   = 60 * time.Second
)

// BreakerOptions configures a CircuitBreaker. Zero values take the defaults.
type BreakerOptions struct {
	Name      string
	Threshold int
	Timeout   time.Duration
	Now       func() time.Time
	// OnStateChange runs outside the breaker lock after every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker guards one external endpoint. A single instance must be
// shared by every caller of that endpoint.
type CircuitBreaker struct {
	name      string
	threshold int
	timeout   time.Duration
	now       func() time.Time
	onChange  func(name string, from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(opts BreakerOptions) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:      opts.Name,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
		now:       opts.Now,
		onChange:  opts.OnStateChange,
		state:     StateClosed,
	}
	if cb.threshold <= 0 {
		cb.threshold = DefaultThreshold
	}
	if cb.timeout <= 0 {
		cb.timeout = DefaultTimeout
	}
	if cb.now == nil {
		cb.now = time.Now
	}
	return cb
}

// Name identifies the guarded endpoint.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs op unless the breaker is open. While HALF_OPEN only one probe
// is in flight; concurrent callers fail fast until it resolves.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// ExecuteValue is Execute for operations that return a value.
func ExecuteValue[T any](ctx context.Context, cb *CircuitBreaker, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	from := cb.state
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.timeout {
			cb.mu.Unlock()
			return domain.ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return domain.ErrCircuitOpen
		}
		cb.probing = true
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	cb.probing = false
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
	} else {
		cb.failures++
		cb.lastFailure = cb.now()
		if from == StateHalfOpen || cb.failures >= cb.threshold {
			cb.state = StateOpen
		}
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.onChange != nil {
		cb.onChange(cb.name, from, to)
	}
}

// State reports the current state without triggering the OPEN to HALF_OPEN
// transition; that only happens when a call arrives.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures reports the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Snapshot is a point-in-time view for diagnostics.
type Snapshot struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	Threshold   int       `json:"threshold"`
	LastFailure time.Time `json:"lastFailure,omitzero"`
}

// Snapshot returns the breaker's current counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:        cb.name,
		State:       cb.state,
		Failures:    cb.failures,
		Threshold:   cb.threshold,
		LastFailure: cb.lastFailure,
	}
}

// Reset forces the breaker closed with zero failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.probing = false
	cb.mu.Unlock()
	cb.notify(from, StateClosed)
}
