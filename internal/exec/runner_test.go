//go:build unix

package exec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/synxlabs/saferun/sandbox"
)

// The test binary doubles as the default trampoline stub.
func TestMain(m *testing.M) {
	sandbox.ChildInit()
	os.Exit(m.Run())
}

// direct launches bypass the trampoline entirely.
func directConfig(program string, args ...string) *RunConfig {
	return &RunConfig{
		Program: program,
		Args:    args,
		Timeout: 10 * time.Second,
	}
}

func TestRun_CapturesStdout(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), directConfig("/bin/sh", "-c", "echo hello"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if string(res.Stdout) != "hello\n" {
		t.Errorf("Stdout = %q, want \"hello\\n\"", res.Stdout)
	}
	if res.Duration <= 0 {
		t.Error("Duration not recorded")
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), directConfig("/bin/sh", "-c", "echo oops >&2; exit 3"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if string(res.Stderr) != "oops\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestRun_Env(t *testing.T) {
	cfg := directConfig("/bin/sh", "-c", "echo $TOOL_OPT")
	cfg.Env = []string{"PATH=/usr/bin:/bin", "TOOL_OPT=42"}

	res, err := NewRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Stdout) != "42\n" {
		t.Errorf("Stdout = %q, want \"42\\n\"", res.Stdout)
	}
}

func TestRun_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	cfg := directConfig("/bin/sh", "-c", "pwd")
	cfg.WorkingDir = dir

	res, err := NewRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	got := string(res.Stdout)
	want, _ := filepath.EvalSymlinks(dir)
	if got != dir+"\n" && got != want+"\n" {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestRun_DeadlineElapsed(t *testing.T) {
	cfg := directConfig("/bin/sh", "-c", "sleep 30")
	cfg.Timeout = 200 * time.Millisecond

	start := time.Now()
	res, err := NewRunner().Run(context.Background(), cfg)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDeadlineElapsed) {
		t.Fatalf("Expected ErrDeadlineElapsed, got %v", err)
	}
	if res != nil {
		t.Error("Timed-out run must not return a result")
	}
	// Timeout, grace period, and reap. Well short of the sleep.
	if elapsed > 3*time.Second {
		t.Errorf("Kill took %v, child was not reaped promptly", elapsed)
	}
}

func TestRun_CompletesBeforeDeadline(t *testing.T) {
	cfg := directConfig("/bin/sh", "-c", "true")
	cfg.Timeout = 10 * time.Second

	start := time.Now()
	if _, err := NewRunner().Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fast child took %v to return; supervisor must not wait out the deadline", elapsed)
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	cfg := directConfig("/bin/sh", "-c", "sleep 30")
	_, err := NewRunner().Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRun_SignalReported(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), directConfig("/bin/sh", "-c", "kill -TERM $$"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Signal != syscall.SIGTERM {
		t.Errorf("Signal = %v, want SIGTERM", res.Signal)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	cfg := directConfig(filepath.Join(t.TempDir(), "no-such-binary"))
	res, err := NewRunner().Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected spawn error")
	}
	if res != nil {
		t.Error("Failed spawn must not return a result")
	}
}

func TestRun_TimeoutRequired(t *testing.T) {
	cfg := directConfig("/bin/sh", "-c", "true")
	cfg.Timeout = 0
	if _, err := NewRunner().Run(context.Background(), cfg); err == nil {
		t.Error("Expected error for missing timeout")
	}
}

func TestRun_Usage(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), directConfig("/bin/sh", "-c", "true"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Usage == nil {
		t.Fatal("Usage not reported")
	}
	if res.Usage.UserTime < 0 || res.Usage.SystemTime < 0 {
		t.Errorf("Usage = %+v", res.Usage)
	}
}

// A stub that dies with the install-failure exit code and the stub stderr
// marker maps to ErrInstallFailed, with its stderr as the reason.
func TestRun_StubInstallFailure(t *testing.T) {
	if !sandbox.Detect().Enforced() {
		t.Skip("no enforcement available")
	}

	stub := filepath.Join(t.TempDir(), "failing-stub")
	script := "#!/bin/sh\necho \"saferun: simulated install failure\" >&2\nexit 125\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &RunConfig{
		Program:  "/bin/sh",
		Args:     []string{"-c", "true"},
		Timeout:  10 * time.Second,
		Sandbox:  sandbox.Spec{CPULimitSecs: 300},
		StubPath: stub,
	}

	_, err := NewRunner().Run(context.Background(), cfg)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Expected ErrInstallFailed, got %v", err)
	}
}

// Exit 125 without the stub marker is an ordinary exit, not an install
// failure.
func TestRun_TargetExit125IsNotInstallFailure(t *testing.T) {
	if !sandbox.Detect().Enforced() {
		t.Skip("no enforcement available")
	}

	stub := filepath.Join(t.TempDir(), "plain-125")
	script := "#!/bin/sh\necho \"user error\" >&2\nexit 125\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &RunConfig{
		Program:  "/bin/sh",
		Args:     []string{"-c", "true"},
		Timeout:  10 * time.Second,
		Sandbox:  sandbox.Spec{CPULimitSecs: 300},
		StubPath: stub,
	}

	res, err := NewRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 125 {
		t.Errorf("ExitCode = %d, want 125", res.ExitCode)
	}
}

// A spec asking only for what the platform cannot install is masked down to
// nothing and the target runs direct instead of failing closed.
func TestRun_MasksUnsupportedEnforcement(t *testing.T) {
	caps := sandbox.Detect()
	if caps.SyscallFilter && caps.PathRules {
		t.Skip("all kernel facilities available, nothing to mask")
	}

	cfg := directConfig("/bin/sh", "-c", "echo degraded")
	if !caps.PathRules {
		cfg.Sandbox = sandbox.Spec{ReadOnlyFS: true}
	} else {
		cfg.Sandbox = sandbox.Spec{DenySyscalls: []string{"socket"}}
	}

	res, err := NewRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run must degrade, not refuse: %v", err)
	}
	if string(res.Stdout) != "degraded\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

// End-to-end through the real trampoline: the test binary re-execs itself,
// ChildInit installs generous rlimits and execs the target.
func TestRun_SandboxedEcho(t *testing.T) {
	if !sandbox.Detect().Enforced() {
		t.Skip("no enforcement available")
	}

	cfg := &RunConfig{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo sandboxed"},
		Env:     []string{"PATH=/usr/bin:/bin"},
		Timeout: 10 * time.Second,
		Sandbox: sandbox.Spec{
			// Generous ceilings so the stub's own runtime fits.
			MemoryLimitBytes: 4 << 30,
			CPULimitSecs:     300,
		},
	}

	res, err := NewRunner().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sandboxed run failed: %v", err)
	}
	if string(res.Stdout) != "sandboxed\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}
