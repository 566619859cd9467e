package resilience

import (
	"sync"
	"time"
)

// CircuitBreaker refuses execution of tools that keep failing, until a
// cool-down passes and a probe succeeds.
type CircuitBreaker interface {
	// Allow checks if execution is allowed.
	Allow(program string) bool

	// RecordSuccess records a successful execution.
	RecordSuccess(program string)

	// RecordFailure records a failed execution.
	RecordFailure(program string)

	// State returns the current state for a tool.
	State(program string) CircuitState

	// Reset resets the circuit breaker for a tool.
	Reset(program string)
}

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// StateClosed allows requests through.
	StateClosed CircuitState = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited requests for probing.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
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

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening.
	FailureThreshold int

	// SuccessThreshold is the number of successes to close from half-open.
	SuccessThreshold int

	// Timeout is the duration to wait before transitioning to half-open.
	Timeout time.Duration

	// PerTool enables per-tool circuit breakers.
	PerTool bool

	// OnStateChange is called when state changes.
	OnStateChange func(program string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns default configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		PerTool:          true,
	}
}

// circuitBreaker implements CircuitBreaker.
type circuitBreaker struct {
	config   CircuitBreakerConfig
	global   *breaker
	breakers map[string]*breaker
	mu       sync.RWMutex
}

// breaker represents a single circuit breaker.
type breaker struct {
	program         string
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	config          *CircuitBreakerConfig
	mu              sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreaker {
	return &circuitBreaker{
		config:   config,
		global:   newBreaker("", &config),
		breakers: make(map[string]*breaker),
	}
}

// Allow implements CircuitBreaker.Allow.
func (cb *circuitBreaker) Allow(program string) bool {
	return cb.forTool(program).allow()
}

// RecordSuccess implements CircuitBreaker.RecordSuccess.
func (cb *circuitBreaker) RecordSuccess(program string) {
	cb.forTool(program).recordSuccess()
}

// RecordFailure implements CircuitBreaker.RecordFailure.
func (cb *circuitBreaker) RecordFailure(program string) {
	cb.forTool(program).recordFailure()
}

// State implements CircuitBreaker.State.
func (cb *circuitBreaker) State(program string) CircuitState {
	return cb.forTool(program).getState()
}

// Reset implements CircuitBreaker.Reset.
func (cb *circuitBreaker) Reset(program string) {
	cb.forTool(program).reset()
}

func (cb *circuitBreaker) forTool(program string) *breaker {
	if !cb.config.PerTool {
		return cb.global
	}

	cb.mu.RLock()
	b, ok := cb.breakers[program]
	cb.mu.RUnlock()

	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Double-check
	if existing, ok := cb.breakers[program]; ok {
		return existing
	}

	newB := newBreaker(program, &cb.config)
	cb.breakers[program] = newB
	return newB
}

func newBreaker(program string, config *CircuitBreakerConfig) *breaker {
	return &breaker{
		program: program,
		state:   StateClosed,
		config:  config,
	}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastFailureTime) > b.config.Timeout {
			b.transition(StateHalfOpen)
			return true
		}
		return false

	case StateHalfOpen:
		return true
	}

	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *breaker) getState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailureTime) > b.config.Timeout {
		b.transition(StateHalfOpen)
	}

	return b.state
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

func (b *breaker) transition(to CircuitState) {
	from := b.state
	b.state = to

	switch to {
	case StateClosed, StateHalfOpen:
		b.failures = 0
		b.successes = 0
	case StateOpen:
		b.successes = 0
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.program, from, to)
	}
}
