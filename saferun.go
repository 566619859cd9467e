package saferun

import (
	"context"
	"fmt"

	"github.com/synxlabs/saferun/config"
	"github.com/synxlabs/saferun/executor"
	"github.com/synxlabs/saferun/observability"
	"github.com/synxlabs/saferun/policy"
	"github.com/synxlabs/saferun/pool"
	"github.com/synxlabs/saferun/resilience"
	"github.com/synxlabs/saferun/sandbox"
)

// ============================================================================
// Core Types
// ============================================================================

// Executor is the main interface for command execution.
type Executor = executor.Executor

// Command represents a validated command ready for execution.
type Command = executor.Command

// CommandBuilder builds commands with eager input validation.
type CommandBuilder = executor.CommandBuilder

// EnvVar is a sanitized environment variable.
type EnvVar = executor.EnvVar

// Result contains the outcome of a command execution.
type Result = executor.Result

// ResourceUsage reports child resource consumption.
type ResourceUsage = executor.ResourceUsage

// ExitStatus classifies how an execution ended.
type ExitStatus = executor.ExitStatus

// Builder constructs configured Executor instances.
type Builder = executor.Builder

// Policy bounds what an executed tool may do.
type Policy = policy.Policy

// Restrictions are the closed-by-default capability switches.
type Restrictions = policy.Restrictions

// PolicyLoader loads and watches a YAML policy file.
type PolicyLoader = policy.Loader

// PolicySet is a compiled policy file with per-tool overlays.
type PolicySet = policy.Set

// Capabilities reports which enforcement mechanisms the platform provides.
type Capabilities = sandbox.Capabilities

// Config is the aggregate library configuration.
type Config = config.Config

// ============================================================================
// Exit Statuses
// ============================================================================

const (
	StatusSuccess     = executor.StatusSuccess
	StatusError       = executor.StatusError
	StatusTimeout     = executor.StatusTimeout
	StatusCanceled    = executor.StatusCanceled
	StatusKilled      = executor.StatusKilled
	StatusRateLimited = executor.StatusRateLimited
	StatusCircuitOpen = executor.StatusCircuitOpen
)

// ============================================================================
// Errors
// ============================================================================

var (
	ErrProgramNotFound       = executor.ErrProgramNotFound
	ErrProgramNotExecutable  = executor.ErrProgramNotExecutable
	ErrUnsafeArgument        = executor.ErrUnsafeArgument
	ErrPathNotAllowed        = executor.ErrPathNotAllowed
	ErrEnvModificationDenied = executor.ErrEnvModificationDenied
	ErrPolicyInstallFailed   = executor.ErrPolicyInstallFailed
	ErrLaunchFailed          = executor.ErrLaunchFailed
	ErrTimeout               = executor.ErrTimeout
	ErrIO                    = executor.ErrIO
	ErrRateLimited           = executor.ErrRateLimited
	ErrCircuitOpen           = executor.ErrCircuitOpen
	ErrInvalidCommand        = executor.ErrInvalidCommand
	ErrExecutorShutdown      = executor.ErrExecutorShutdown
)

// ============================================================================
// Constructors
// ============================================================================

// New creates an executor with default settings: no admission gates, no
// telemetry, sandbox enforcement per platform capability.
func New() (Executor, error) {
	return executor.NewBuilder().Build()
}

// NewBuilder returns an executor builder for custom wiring.
func NewBuilder() *Builder {
	return executor.NewBuilder()
}

// NewFromConfig wires an executor from aggregate configuration: worker pool,
// rate limiter, circuit breaker, OTEL telemetry, and audit logging, each
// behind its enable switch.
func NewFromConfig(cfg Config) (Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := executor.NewBuilder().
		WithStubPath(cfg.Executor.StubPath).
		WithAppArmorProfile(cfg.Executor.AppArmorProfile)

	if cfg.Executor.EnablePool {
		p, err := pool.New(cfg.Pool)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		b.WithPool(p)
	}

	if cfg.Executor.EnableRateLimiter {
		b.WithRateLimiter(resilience.NewRateLimiter(cfg.RateLimiter))
	}

	if cfg.Executor.EnableCircuitBreaker {
		b.WithCircuitBreaker(resilience.NewCircuitBreaker(cfg.CircuitBreaker))
	}

	if cfg.Executor.EnableMetrics || cfg.Executor.EnableTracing {
		t, err := observability.NewTelemetry(cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("create telemetry: %w", err)
		}
		b.WithTelemetry(observability.ExecutorTelemetry(t))
	}

	if cfg.Executor.EnableAudit {
		logger, err := observability.NewFileAuditLogger(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("create audit logger: %w", err)
		}
		b.WithHooks(observability.NewAuditHook(logger))
	}

	return b.Build()
}

// Cmd starts building a command under the given policy. The program path is
// resolved and checked immediately; further builder calls validate their
// inputs the same way.
func Cmd(program string, pol Policy, args ...string) *CommandBuilder {
	return executor.NewCommand(program, pol).Args(args...)
}

// DefaultPolicy returns the restrictive default policy.
func DefaultPolicy() Policy {
	return policy.Default()
}

// LoadPolicies creates a loader for the YAML policy file at path.
func LoadPolicies(path string) *PolicyLoader {
	return policy.NewLoader(path)
}

// Detect reports which enforcement mechanisms this platform provides.
func Detect() Capabilities {
	return sandbox.Detect()
}

// ChildInit must be the first call in main for hosts that use the default
// re-exec trampoline. When the process was spawned as a sandbox child it
// installs enforcement and execs the target, never returning; otherwise it
// is a no-op.
func ChildInit() {
	sandbox.ChildInit()
}

// Execute is a convenience for one-off runs: builds the command under pol
// and runs it on a fresh default executor.
func Execute(ctx context.Context, program string, args []string, pol Policy) (*Result, error) {
	cmd, err := Cmd(program, pol, args...).Build()
	if err != nil {
		return nil, err
	}

	exec, err := New()
	if err != nil {
		return nil, err
	}
	defer exec.Shutdown(context.Background())

	return exec.Execute(ctx, cmd)
}
