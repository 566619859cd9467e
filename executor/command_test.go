//go:build unix

package executor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/synxlabs/saferun/policy"
)

// testPolicy has ceilings high enough that the trampoline's own runtime
// fits under them.
func testPolicy() policy.Policy {
	pol := policy.Default()
	pol.Timeout = 10 * time.Second
	pol.MemoryLimit = 4 << 30
	pol.CPULimit = 300
	return pol
}

func TestNewCommand(t *testing.T) {
	cmd, err := NewCommand("/bin/sh", testPolicy()).Args("-c", "true").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cmd.Program == "" || !strings.HasPrefix(cmd.Program, "/") {
		t.Errorf("Program should be canonical absolute, got %q", cmd.Program)
	}
	if len(cmd.Args) != 2 {
		t.Errorf("Args = %v", cmd.Args)
	}
}

func TestNewCommand_InvalidPolicy(t *testing.T) {
	pol := testPolicy()
	pol.Timeout = 0

	_, err := NewCommand("/bin/sh", pol).Build()
	if err == nil {
		t.Error("Expected error for invalid policy")
	}
}

func TestNewCommand_MissingProgram(t *testing.T) {
	_, err := NewCommand("/no/such/tool", testPolicy()).Build()
	if !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("Expected ErrProgramNotFound, got %v", err)
	}
}

func TestBuilder_LatchesFirstError(t *testing.T) {
	b := NewCommand("/bin/sh", testPolicy()).
		Arg("safe").
		Arg("bad;arg").
		Arg("also|bad").
		Arg("safe-again")

	err := b.Err()
	if !errors.Is(err, ErrUnsafeArgument) {
		t.Fatalf("Expected ErrUnsafeArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), "argument 1") {
		t.Errorf("Latched error should name the first offender: %v", err)
	}

	if _, buildErr := b.Build(); buildErr != err {
		t.Error("Build should return the latched error")
	}
}

func TestBuilder_StepsAfterErrorAreNoOps(t *testing.T) {
	b := NewCommand("/no/such/tool", testPolicy()).
		Arg("x").
		WithWorkingDir("/tmp").
		WithEnv("K", "v")

	if !errors.Is(b.Err(), ErrProgramNotFound) {
		t.Errorf("Later steps must not replace the latched error, got %v", b.Err())
	}
}

func TestBuilder_WorkingDirAgainstPolicy(t *testing.T) {
	root := t.TempDir()
	pol := testPolicy()
	pol.AllowedPaths = []string{root}

	if _, err := NewCommand("/bin/sh", pol).WithWorkingDir(root).Build(); err != nil {
		t.Errorf("Allowed root should pass: %v", err)
	}

	_, err := NewCommand("/bin/sh", pol).WithWorkingDir("/etc").Build()
	if !errors.Is(err, ErrPathNotAllowed) {
		t.Errorf("Expected ErrPathNotAllowed for /etc, got %v", err)
	}
}

func TestBuilder_EnvGate(t *testing.T) {
	_, err := NewCommand("/bin/sh", testPolicy()).WithEnv("K", "v").Build()
	if !errors.Is(err, ErrEnvModificationDenied) {
		t.Errorf("Expected ErrEnvModificationDenied under default policy, got %v", err)
	}

	pol := testPolicy()
	pol.Restrictions.AllowEnvModifications = true
	cmd, err := NewCommand("/bin/sh", pol).WithEnv("K", "v").WithEnv("K", "w").Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(cmd.Env) != 2 || cmd.Env[1].Value != "w" {
		t.Errorf("Env = %v, want ordered overrides with last write last", cmd.Env)
	}
}

// The command owns a copy of the policy; mutating the caller's value after
// Build must not reach the command.
func TestCommand_PolicyCopied(t *testing.T) {
	pol := testPolicy()
	pol.AllowedPaths = []string{"/tmp"}

	cmd, err := NewCommand("/bin/sh", pol).Build()
	if err != nil {
		t.Fatal(err)
	}

	pol.Timeout = time.Nanosecond
	pol.AllowedPaths[0] = "/evil"

	if cmd.Policy.Timeout != 10*time.Second {
		t.Error("Command shares scalar policy state with the caller")
	}
	if cmd.Policy.AllowedPaths[0] != "/tmp" {
		t.Error("Command shares AllowedPaths backing array with the caller")
	}
}

func TestCommand_Clone(t *testing.T) {
	pol := testPolicy()
	pol.Restrictions.AllowEnvModifications = true

	cmd, err := NewCommand("/bin/sh", pol).Args("-c", "true").WithEnv("K", "v").Build()
	if err != nil {
		t.Fatal(err)
	}

	c := cmd.Clone()
	c.Args[0] = "changed"
	c.Env[0].Value = "changed"

	if cmd.Args[0] != "-c" || cmd.Env[0].Value != "v" {
		t.Error("Clone shares state with the original")
	}
}

func TestCommand_StringOmitsEnvValues(t *testing.T) {
	pol := testPolicy()
	pol.Restrictions.AllowEnvModifications = true

	cmd, err := NewCommand("/bin/sh", pol).Arg("-c").WithEnv("TOKEN", "secret-value").Build()
	if err != nil {
		t.Fatal(err)
	}

	s := cmd.String()
	if strings.Contains(s, "secret-value") {
		t.Errorf("String() leaks env values: %q", s)
	}
	if !strings.Contains(s, "-c") {
		t.Errorf("String() should include args: %q", s)
	}
}
