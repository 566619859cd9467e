// Package policy defines the execution policy model and its YAML loader.
//
// A Policy says what a launched tool may do: how long it may run, how much
// memory and CPU time it may consume, whether it may reach the network,
// which directory roots it may work under, and which of the closed-by-default
// capabilities the caller has explicitly opened. A Policy is a plain value.
// It is fully specified before a command is built, attached to the command by
// copy, and never consulted or mutated again once execution starts.
package policy

import (
	"fmt"
	"path/filepath"
	"time"
)

// Restrictions are the closed-by-default capability switches. The zero value
// denies everything; each capability must be opted into explicitly.
type Restrictions struct {
	// AllowShellExpansion permits callers to deliberately run a shell.
	// The engine itself never constructs shell strings; this flag is
	// advisory metadata for wrappers that do.
	AllowShellExpansion bool

	// AllowFileWrites permits filesystem mutation. When false the child
	// runs under read-only filesystem rules and a write-class syscall
	// deny list on Linux.
	AllowFileWrites bool

	// AllowSubprocesses permits the tool to fork or clone children.
	AllowSubprocesses bool

	// AllowEnvModifications permits environment overrides on the command
	// builder. When false, WithEnv fails.
	AllowEnvModifications bool
}

// Policy describes what a launched process may do.
type Policy struct {
	// Timeout bounds wall-clock execution time. Must be positive; there
	// is no unlimited mode.
	Timeout time.Duration

	// MemoryLimit is the address-space ceiling for the child, in bytes.
	// Installed as RLIMIT_AS in the child before exec.
	MemoryLimit int64

	// CPULimit is the CPU-time ceiling in CPU-seconds, installed as
	// RLIMIT_CPU in the child before exec.
	CPULimit uint64

	// AllowNetwork permits socket-class syscalls where the platform can
	// enforce the distinction.
	AllowNetwork bool

	// AllowedPaths are absolute directory roots the command's working
	// directory must fall under. Empty means any existing directory is
	// acceptable; the directory is still canonicalized either way.
	AllowedPaths []string

	Restrictions Restrictions
}

// Default returns the maximally restrictive policy: 30 second timeout,
// 512 MiB of memory, 50 CPU-seconds, no network, no path allowances, and
// every capability switch closed.
func Default() Policy {
	return Policy{
		Timeout:     30 * time.Second,
		MemoryLimit: 512 * 1024 * 1024,
		CPULimit:    50,
	}
}

// Validate reports whether the policy is internally consistent. A command
// builder refuses a policy that fails validation.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("policy: timeout must be positive, got %v", p.Timeout)
	}
	if p.MemoryLimit <= 0 {
		return fmt.Errorf("policy: memory limit must be positive, got %d", p.MemoryLimit)
	}
	if p.CPULimit == 0 {
		return fmt.Errorf("policy: cpu limit must be positive")
	}
	for _, root := range p.AllowedPaths {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("policy: allowed path %q is not absolute", root)
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable state with the receiver.
func (p Policy) Clone() Policy {
	out := p
	if p.AllowedPaths != nil {
		out.AllowedPaths = append([]string(nil), p.AllowedPaths...)
	}
	return out
}
