package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/synxlabs/saferun/validation"
)

// Sentinel errors. Sanitizer failures are re-exported from the validation
// package so the whole taxonomy is classifiable from here with errors.Is.
var (
	// ErrProgramNotFound indicates the program path does not resolve.
	ErrProgramNotFound = validation.ErrProgramNotFound

	// ErrProgramNotExecutable indicates the program cannot be executed.
	ErrProgramNotExecutable = validation.ErrProgramNotExecutable

	// ErrUnsafeArgument indicates an argument failed sanitization.
	ErrUnsafeArgument = validation.ErrUnsafeArgument

	// ErrPathNotAllowed indicates a working directory was refused.
	ErrPathNotAllowed = validation.ErrPathNotAllowed

	// ErrEnvModificationDenied indicates the policy forbids env overrides.
	ErrEnvModificationDenied = validation.ErrEnvModificationDenied

	// ErrPolicyInstallFailed indicates sandbox enforcement could not be
	// installed; the target never ran.
	ErrPolicyInstallFailed = errors.New("policy installation failed")

	// ErrLaunchFailed indicates the process could not be spawned.
	ErrLaunchFailed = errors.New("launch failed")

	// ErrTimeout indicates the command exceeded its wall-clock deadline.
	ErrTimeout = errors.New("command timed out")

	// ErrIO indicates output collection or another runtime I/O failure.
	ErrIO = errors.New("i/o error")

	// ErrRateLimited indicates the admission rate limit refused the run.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen indicates the circuit breaker refused the run.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrInvalidCommand indicates a nil or unbuilt command.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrExecutorShutdown indicates the executor is shut down.
	ErrExecutorShutdown = errors.New("executor shutdown")
)

// ErrorCode provides structured error classification for audit records.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates sanitizer rejection.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodePolicyInstall indicates sandbox installation failure.
	ErrCodePolicyInstall ErrorCode = "POLICY_INSTALL_FAILED"

	// ErrCodeLaunchFailed indicates spawn failure.
	ErrCodeLaunchFailed ErrorCode = "LAUNCH_FAILED"

	// ErrCodeTimeout indicates deadline expiry.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeIO indicates a runtime I/O failure.
	ErrCodeIO ErrorCode = "IO_ERROR"

	// ErrCodeRateLimited indicates rate limiting.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrCodeCircuitOpen indicates the breaker is open.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// ErrCodeInternalError indicates anything unclassified.
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ExecutionError provides detailed error information.
type ExecutionError struct {
	// Op is the operation that failed.
	Op string

	// Program is the binary being executed.
	Program string

	// Err is the underlying error.
	Err error

	// Code is the structured error code.
	Code ErrorCode

	// Details provides human-readable details.
	Details string
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Program, e.Details)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Program, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(program string, timeout time.Duration) error {
	return &ExecutionError{
		Op:      "execute",
		Program: program,
		Err:     ErrTimeout,
		Code:    ErrCodeTimeout,
		Details: fmt.Sprintf("execution exceeded timeout of %s", timeout),
	}
}

// NewPolicyInstallError creates a sandbox installation error.
func NewPolicyInstallError(program string, cause error) error {
	return &ExecutionError{
		Op:      "sandbox",
		Program: program,
		Err:     fmt.Errorf("%w: %v", ErrPolicyInstallFailed, cause),
		Code:    ErrCodePolicyInstall,
		Details: cause.Error(),
	}
}

// NewLaunchError creates a spawn failure error.
func NewLaunchError(program string, cause error) error {
	return &ExecutionError{
		Op:      "launch",
		Program: program,
		Err:     fmt.Errorf("%w: %v", ErrLaunchFailed, cause),
		Code:    ErrCodeLaunchFailed,
		Details: cause.Error(),
	}
}

// NewIOError creates an I/O failure error.
func NewIOError(program string, cause error) error {
	return &ExecutionError{
		Op:      "execute",
		Program: program,
		Err:     fmt.Errorf("%w: %v", ErrIO, cause),
		Code:    ErrCodeIO,
		Details: cause.Error(),
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(program string) error {
	return &ExecutionError{
		Op:      "rate_limit",
		Program: program,
		Err:     ErrRateLimited,
		Code:    ErrCodeRateLimited,
		Details: "rate limit exceeded",
	}
}

// NewCircuitOpenError creates a circuit breaker open error.
func NewCircuitOpenError(program string) error {
	return &ExecutionError{
		Op:      "circuit_breaker",
		Program: program,
		Err:     ErrCircuitOpen,
		Code:    ErrCodeCircuitOpen,
		Details: "circuit breaker is open due to recent failures",
	}
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProgramNotFound),
		errors.Is(err, ErrProgramNotExecutable),
		errors.Is(err, ErrUnsafeArgument),
		errors.Is(err, ErrPathNotAllowed),
		errors.Is(err, ErrEnvModificationDenied):
		return ErrCodeValidationFailed
	default:
		return ErrCodeInternalError
	}
}
