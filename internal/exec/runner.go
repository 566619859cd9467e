// Package exec is the only package in the module that spawns OS processes.
// It owns the launch and the deadline: one goroutine waits for the child, a
// timer sleeps for exactly the configured timeout, and context cancellation
// joins as a third participant; the first observed event wins and the
// losers' effects are discarded.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/synxlabs/saferun/sandbox"
)

// Launch failures distinguishable by the caller.
var (
	// ErrDeadlineElapsed reports that the timeout fired before the child
	// finished. The child has been killed and reaped.
	ErrDeadlineElapsed = errors.New("deadline elapsed")

	// ErrInstallFailed reports that the child stub could not install the
	// sandbox; the target was never executed.
	ErrInstallFailed = errors.New("sandbox installation failed")
)

// RunConfig is a fully sanitized launch request. Callers must not pass
// unvalidated input here; the runner applies it verbatim.
type RunConfig struct {
	Program    string
	Args       []string
	Env        []string
	WorkingDir string

	// Timeout is the wall-clock deadline. Required.
	Timeout time.Duration

	// Sandbox is the enforcement to install in the child. It is masked
	// by the platform's capabilities before launch; when nothing
	// installable remains the target is spawned directly.
	Sandbox sandbox.Spec

	// StubPath overrides the trampoline binary. Empty means re-exec the
	// current executable, whose main must call sandbox.ChildInit.
	StubPath string
}

// Usage is the child's resource consumption as reported at reap time.
type Usage struct {
	UserTime   time.Duration
	SystemTime time.Duration
	MaxRSS     int64
}

// RunResult is a completed (non-timed-out) execution.
type RunResult struct {
	ExitCode int
	Signal   syscall.Signal
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	Usage    *Usage
}

// Runner launches processes. Stateless; safe for concurrent use.
type Runner struct{}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run launches the program and supervises it until completion, timeout or
// context cancellation, whichever is observed first.
//
// Stdin is closed, stdout and stderr are captured. The child runs in its
// own process group; its pgid is captured once, immediately after spawn,
// and is the only handle the kill path uses. On timeout the group gets
// SIGTERM, a short grace period, then SIGKILL; the waiter is drained and
// partial output discarded.
func (r *Runner) Run(ctx context.Context, cfg *RunConfig) (*RunResult, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("launch %s: timeout must be positive", cfg.Program)
	}

	cmd, sandboxed, err := r.buildCmd(cfg)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = procAttr()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", cfg.Program, err)
	}

	// The only snapshot of the child's identity. Everything below kills
	// by group, never by re-reading cmd.Process.
	pid := cmd.Process.Pid

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()

	select {
	case waitErr := <-waitCh:
		return r.finish(cfg, cmd, sandboxed, &stdout, &stderr, time.Since(start), waitErr)

	case <-timer.C:
		terminate(pid)
		<-waitCh
		return nil, fmt.Errorf("%s after %s: %w", cfg.Program, cfg.Timeout, ErrDeadlineElapsed)

	case <-ctx.Done():
		terminate(pid)
		<-waitCh
		return nil, ctx.Err()
	}
}

// buildCmd decides between the direct spawn and the sandbox trampoline.
// The spec is masked by the platform's capabilities first: only what the
// running kernel can actually install travels to the stub, and a platform
// with nothing installable spawns direct. Detect tells callers what was
// left unenforced.
func (r *Runner) buildCmd(cfg *RunConfig) (*osexec.Cmd, bool, error) {
	caps := sandbox.Detect()
	spec := cfg.Sandbox.MaskBy(caps)

	if spec.Required() && caps.Enforced() {
		stub := cfg.StubPath
		if stub == "" {
			self, err := os.Executable()
			if err != nil {
				return nil, false, fmt.Errorf("resolve trampoline: %w", err)
			}
			stub = self
		}

		payload := sandbox.Payload{
			Program:    cfg.Program,
			Argv:       cfg.Args,
			Env:        cfg.Env,
			WorkingDir: cfg.WorkingDir,
			Spec:       spec,
		}
		encoded, err := sandbox.EncodePayload(&payload)
		if err != nil {
			return nil, false, err
		}

		cmd := osexec.Command(stub)
		// The stub needs nothing but the payload; the target's real
		// environment travels inside it.
		cmd.Env = []string{sandbox.PayloadEnv + "=" + encoded}
		return cmd, true, nil
	}

	cmd := osexec.Command(cfg.Program, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Dir = cfg.WorkingDir
	return cmd, false, nil
}

// finish classifies a reaped child.
func (r *Runner) finish(cfg *RunConfig, cmd *osexec.Cmd, sandboxed bool, stdout, stderr *bytes.Buffer, elapsed time.Duration, waitErr error) (*RunResult, error) {
	if waitErr != nil {
		var exitErr *osexec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("collect %s: %w", cfg.Program, waitErr)
		}
	}

	state := cmd.ProcessState
	exitCode := state.ExitCode()

	if sandboxed && exitCode == sandbox.InstallFailedExit {
		// The stub's stderr marker is what distinguishes an install
		// failure from a target that legitimately exits 125.
		reason := strings.TrimSpace(stderr.String())
		if strings.HasPrefix(reason, sandbox.StubErrorPrefix) {
			reason = strings.TrimPrefix(reason, sandbox.StubErrorPrefix)
			return nil, fmt.Errorf("%s: %s: %w", cfg.Program, reason, ErrInstallFailed)
		}
	}

	res := &RunResult{
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: elapsed,
		Usage:    extractUsage(state),
	}
	if sig, ok := extractSignal(state); ok {
		res.Signal = sig
	}
	return res, nil
}
