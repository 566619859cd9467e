// Package validation is the input sanitizer: every string that will reach
// the operating system (program path, arguments, working directory,
// environment keys and values) passes through here before a command can be
// built. Checks are synchronous and eager; beyond stat and symlink
// resolution they have no side effects, and re-checking already-sanitized
// input always succeeds.
package validation

import "errors"

// Sentinel failures. Callers classify with errors.Is; the wrapped message
// carries the offending value and position.
var (
	// ErrProgramNotFound means the program path does not resolve to an
	// existing file.
	ErrProgramNotFound = errors.New("program not found")

	// ErrProgramNotExecutable means the program exists but cannot be
	// executed by the current user.
	ErrProgramNotExecutable = errors.New("program not executable")

	// ErrUnsafeArgument means an argument or environment value contains
	// a refused byte or exceeds the length cap.
	ErrUnsafeArgument = errors.New("unsafe argument")

	// ErrPathNotAllowed means a working directory does not exist or
	// falls outside the policy's allowed roots.
	ErrPathNotAllowed = errors.New("path not allowed")

	// ErrEnvModificationDenied means the policy does not permit
	// environment overrides.
	ErrEnvModificationDenied = errors.New("environment modification denied")
)
