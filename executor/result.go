package executor

import "time"

// ExitStatus classifies how an execution attempt ended.
type ExitStatus int

const (
	// StatusSuccess indicates exit code 0.
	StatusSuccess ExitStatus = iota
	// StatusError indicates a non-zero exit code.
	StatusError
	// StatusTimeout indicates the deadline fired and the child was killed.
	StatusTimeout
	// StatusCanceled indicates the caller's context was canceled.
	StatusCanceled
	// StatusKilled indicates the child died on a signal it did not expect.
	StatusKilled
	// StatusRateLimited indicates the admission rate limit refused the run.
	StatusRateLimited
	// StatusCircuitOpen indicates the circuit breaker refused the run.
	StatusCircuitOpen
)

// String returns the string representation of the status.
func (s ExitStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	case StatusKilled:
		return "killed"
	case StatusRateLimited:
		return "rate_limited"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// ResourceUsage is the child's consumption as reported at reap time.
type ResourceUsage struct {
	UserTime   time.Duration
	SystemTime time.Duration
	MaxRSS     int64
}

// Result is the outcome of one execution attempt. A timed-out or canceled
// run carries no output: partial output from a killed child is discarded.
type Result struct {
	// CommandID correlates the result with audit and telemetry records.
	CommandID string

	Status   ExitStatus
	ExitCode int

	// Signal names the terminating signal, when there was one.
	Signal string

	Stdout []byte
	Stderr []byte

	// Duration is wall-clock time from spawn to reap.
	Duration time.Duration

	ResourceUsage *ResourceUsage
}

// Success reports whether the command completed with exit code 0.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess && r.ExitCode == 0
}

// StdoutString returns stdout as a string.
func (r *Result) StdoutString() string {
	return string(r.Stdout)
}

// StderrString returns stderr as a string.
func (r *Result) StderrString() string {
	return string(r.Stderr)
}
