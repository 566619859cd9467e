package executor

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/synxlabs/saferun/internal/envutil"
	internalexec "github.com/synxlabs/saferun/internal/exec"
	"github.com/synxlabs/saferun/sandbox"
)

// Executor is the single entry point for process invocation. All command
// execution goes through this interface.
type Executor interface {
	// Execute runs a command synchronously under its policy.
	Execute(ctx context.Context, cmd *Command) (*Result, error)

	// ExecuteBatch runs commands concurrently and returns results in
	// input order alongside the first error encountered.
	ExecuteBatch(ctx context.Context, cmds []*Command) ([]*Result, error)

	// Shutdown stops admitting new commands and waits for in-flight
	// executions to finish.
	Shutdown(ctx context.Context) error
}

// WorkerPool bounds batch concurrency.
type WorkerPool interface {
	// Submit schedules a task, blocking or failing per pool policy.
	Submit(ctx context.Context, task func()) error
}

// RateLimiter gates admission by tool.
type RateLimiter interface {
	// Wait blocks until the tool may run or the context ends.
	Wait(ctx context.Context, program string) error
}

// CircuitBreaker gates admission by recent tool health.
type CircuitBreaker interface {
	// Allow checks if execution is allowed.
	Allow(program string) bool
	// RecordSuccess records a successful execution.
	RecordSuccess(program string)
	// RecordFailure records a failed execution.
	RecordFailure(program string)
}

// Hook defines extension points around each execution attempt.
type Hook interface {
	// PreExecute is called before command execution.
	PreExecute(ctx context.Context, cmd *Command) (*Command, error)
	// PostExecute is called after command execution.
	PostExecute(ctx context.Context, cmd *Command, result *Result, err error) error
}

// Telemetry provides observability.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordDuration records a duration metric in seconds.
	RecordDuration(name string, seconds float64, labels map[string]string)
	// RecordCounter increments a counter metric.
	RecordCounter(name string, labels map[string]string)
	// AddActive adjusts the active-execution gauge.
	AddActive(delta int64, labels map[string]string)
}

// executor is the default implementation.
type executor struct {
	runner          *internalexec.Runner
	pool            WorkerPool
	rateLimiter     RateLimiter
	circuitBreaker  CircuitBreaker
	telemetry       Telemetry
	hooks           []Hook
	stubPath        string
	appArmorProfile string
	wg              sync.WaitGroup
	mu              sync.RWMutex // keeps shutdown check and wg.Add atomic
	shutdown        int32
}

// Builder creates configured Executor instances.
type Builder struct {
	pool            WorkerPool
	rateLimiter     RateLimiter
	circuitBreaker  CircuitBreaker
	telemetry       Telemetry
	hooks           []Hook
	stubPath        string
	appArmorProfile string
}

// NewBuilder creates a new executor builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithPool sets the worker pool used by ExecuteBatch.
func (b *Builder) WithPool(pool WorkerPool) *Builder {
	b.pool = pool
	return b
}

// WithRateLimiter sets the admission rate limiter.
func (b *Builder) WithRateLimiter(limiter RateLimiter) *Builder {
	b.rateLimiter = limiter
	return b
}

// WithCircuitBreaker sets the circuit breaker.
func (b *Builder) WithCircuitBreaker(cb CircuitBreaker) *Builder {
	b.circuitBreaker = cb
	return b
}

// WithHooks adds execution hooks.
func (b *Builder) WithHooks(hooks ...Hook) *Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithStubPath points the sandbox trampoline at a helper binary (such as
// saferun-init) instead of re-executing the host process.
func (b *Builder) WithStubPath(path string) *Builder {
	b.stubPath = path
	return b
}

// WithAppArmorProfile names an AppArmor profile for children to transition
// into before exec.
func (b *Builder) WithAppArmorProfile(profile string) *Builder {
	b.appArmorProfile = profile
	return b
}

// Build creates the executor.
func (b *Builder) Build() (Executor, error) {
	return &executor{
		runner:          internalexec.NewRunner(),
		pool:            b.pool,
		rateLimiter:     b.rateLimiter,
		circuitBreaker:  b.circuitBreaker,
		telemetry:       b.telemetry,
		hooks:           b.hooks,
		stubPath:        b.stubPath,
		appArmorProfile: b.appArmorProfile,
	}, nil
}

// Execute runs a command synchronously.
func (e *executor) Execute(ctx context.Context, cmd *Command) (*Result, error) {
	// Shutdown check and wg.Add must be atomic, otherwise Shutdown can
	// start wg.Wait between our check and Add.
	e.mu.RLock()
	if atomic.LoadInt32(&e.shutdown) == 1 {
		e.mu.RUnlock()
		return nil, ErrExecutorShutdown
	}
	e.wg.Add(1)
	e.mu.RUnlock()
	defer e.wg.Done()

	if cmd == nil || cmd.Program == "" {
		return nil, ErrInvalidCommand
	}

	if e.telemetry != nil {
		var endSpan func()
		ctx, endSpan = e.telemetry.StartSpan(ctx, "executor.Execute")
		defer endSpan()

		gauge := map[string]string{"program": cmd.Program}
		e.telemetry.AddActive(1, gauge)
		defer e.telemetry.AddActive(-1, gauge)
	}

	commandID := uuid.New().String()

	cmd, err := e.runPreHooks(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Wait(ctx, cmd.Program); err != nil {
			e.recordDenial(cmd.Program, "rate_limited")
			result := &Result{Status: StatusRateLimited, CommandID: commandID}
			return e.deliver(ctx, cmd, result, NewRateLimitError(cmd.Program))
		}
	}

	if e.circuitBreaker != nil {
		if !e.circuitBreaker.Allow(cmd.Program) {
			e.recordDenial(cmd.Program, "circuit_open")
			result := &Result{Status: StatusCircuitOpen, CommandID: commandID}
			return e.deliver(ctx, cmd, result, NewCircuitOpenError(cmd.Program))
		}
	}

	spec := sandbox.FromPolicy(cmd.Policy)
	spec.AppArmorProfile = e.appArmorProfile

	config := &internalexec.RunConfig{
		Program:    cmd.Program,
		Args:       cmd.Args,
		Env:        envutil.Merge(envutil.Minimal(), flattenEnv(cmd.Env)),
		WorkingDir: cmd.WorkingDir,
		Timeout:    cmd.Policy.Timeout,
		Sandbox:    spec,
		StubPath:   e.stubPath,
	}

	runResult, runErr := e.runner.Run(ctx, config)
	result, execErr := e.classify(cmd, commandID, runResult, runErr)

	if e.circuitBreaker != nil {
		if execErr == nil && result.Success() {
			e.circuitBreaker.RecordSuccess(cmd.Program)
		} else {
			e.circuitBreaker.RecordFailure(cmd.Program)
		}
	}

	if e.telemetry != nil {
		labels := map[string]string{
			"program":  cmd.Program,
			"status":   result.Status.String(),
			"exitcode": strconv.Itoa(result.ExitCode),
		}
		e.telemetry.RecordCounter("saferun.executions", labels)
		e.telemetry.RecordDuration("saferun.execution_duration_seconds",
			result.Duration.Seconds(), labels)
	}

	return e.deliver(ctx, cmd, result, execErr)
}

// ExecuteBatch runs commands concurrently, through the worker pool when one
// is configured.
func (e *executor) ExecuteBatch(ctx context.Context, cmds []*Command) ([]*Result, error) {
	results := make([]*Result, len(cmds))
	errs := make([]error, len(cmds))

	var wg sync.WaitGroup
	for i, cmd := range cmds {
		wg.Add(1)
		run := func(idx int, c *Command) func() {
			return func() {
				defer wg.Done()
				results[idx], errs[idx] = e.Execute(ctx, c)
			}
		}(i, cmd)

		if e.pool != nil {
			if err := e.pool.Submit(ctx, run); err != nil {
				errs[i] = err
				wg.Done()
			}
			continue
		}
		go run()
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Shutdown stops admission and drains in-flight executions.
func (e *executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	atomic.StoreInt32(&e.shutdown, 1)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *executor) recordDenial(program, reason string) {
	if e.telemetry != nil {
		e.telemetry.RecordCounter("saferun.denials",
			map[string]string{"program": program, "reason": reason})
	}
}

func (e *executor) runPreHooks(ctx context.Context, cmd *Command) (*Command, error) {
	current := cmd
	for _, hook := range e.hooks {
		modified, err := hook.PreExecute(ctx, current)
		if err != nil {
			return nil, err
		}
		current = modified
	}
	return current, nil
}

// deliver runs post-hooks and returns the final pair. A hook failure takes
// precedence over the execution error so audit gaps surface.
func (e *executor) deliver(ctx context.Context, cmd *Command, result *Result, execErr error) (*Result, error) {
	for _, hook := range e.hooks {
		if err := hook.PostExecute(ctx, cmd, result, execErr); err != nil {
			return result, err
		}
	}
	return result, execErr
}

// classify maps a runner outcome onto the result and error taxonomy.
func (e *executor) classify(cmd *Command, commandID string, runResult *internalexec.RunResult, runErr error) (*Result, error) {
	result := &Result{CommandID: commandID}

	if runErr != nil {
		switch {
		case errors.Is(runErr, internalexec.ErrDeadlineElapsed):
			result.Status = StatusTimeout
			result.Duration = cmd.Policy.Timeout
			return result, NewTimeoutError(cmd.Program, cmd.Policy.Timeout)

		case errors.Is(runErr, internalexec.ErrInstallFailed):
			result.Status = StatusError
			return result, NewPolicyInstallError(cmd.Program, runErr)

		case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
			result.Status = StatusCanceled
			return result, runErr

		case runResult == nil:
			result.Status = StatusError
			return result, NewLaunchError(cmd.Program, runErr)

		default:
			result.Status = StatusError
			return result, NewIOError(cmd.Program, runErr)
		}
	}

	result.ExitCode = runResult.ExitCode
	result.Stdout = runResult.Stdout
	result.Stderr = runResult.Stderr
	result.Duration = runResult.Duration
	if runResult.Signal != 0 {
		result.Signal = runResult.Signal.String()
	}
	if runResult.Usage != nil {
		result.ResourceUsage = &ResourceUsage{
			UserTime:   runResult.Usage.UserTime,
			SystemTime: runResult.Usage.SystemTime,
			MaxRSS:     runResult.Usage.MaxRSS,
		}
	}

	switch {
	case runResult.ExitCode == 0:
		result.Status = StatusSuccess
	case runResult.Signal != 0:
		result.Status = StatusKilled
	default:
		result.Status = StatusError
	}

	return result, nil
}

func flattenEnv(env []EnvVar) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, len(env))
	for i, kv := range env {
		out[i] = kv.Key + "=" + kv.Value
	}
	return out
}
