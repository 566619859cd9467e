// Package saferun is a secure command execution engine for running external
// validator tools under policy.
//
// Every invocation is governed by a Policy: wall-clock timeout, memory and
// CPU ceilings, network access, allowed working-directory roots, and
// closed-by-default capability switches for file writes, subprocesses,
// environment changes and shell use. Inputs are sanitized eagerly while the
// command is built; enforcement is installed in the child process on Linux
// (rlimits, Landlock path rules, a seccomp deny filter) before the target
// execs.
//
// # Basic Usage
//
//	exec, err := saferun.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Shutdown(context.Background())
//
//	cmd, err := saferun.Cmd("/usr/bin/jq", saferun.DefaultPolicy(), ".", "data.json").Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := exec.Execute(ctx, cmd)
//
// # Sandbox Trampoline
//
// Go cannot run code between fork and exec, so Linux enforcement rides a
// re-exec trampoline. Hosts using the default trampoline must make
// ChildInit the first call in main:
//
//	func main() {
//	    saferun.ChildInit()
//	    // normal startup
//	}
//
// Alternatively, point the executor at the saferun-init helper binary with
// the builder's WithStubPath.
//
// # Degradation
//
// Enforcement is masked by what the running platform supports: a kernel
// without Landlock still installs the seccomp filter and rlimits, other
// Unix platforms install rlimits only, and platforms with nothing
// installable run the target directly. Detect reports what is actually
// enforced so callers can refuse untrusted tools rather than trusting
// silently weakened isolation. A facility the platform does support that
// fails to install still aborts the launch.
//
// # Package Structure
//
//   - saferun: entry point and convenience functions
//   - executor: Executor interface, command builder, result and error taxonomy
//   - policy: policy model and YAML loading
//   - validation: input sanitization
//   - sandbox: capability detection and child-side enforcement
//   - pool: bounded worker pool with backpressure
//   - resilience: rate limiting and circuit breaker
//   - observability: OpenTelemetry metrics and audit logging
//   - hooks: extension points for custom behavior
//   - config: configuration management
package saferun
