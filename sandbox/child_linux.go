//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"sync"

	seccomp "github.com/elastic/go-seccomp-bpf"
	landlocksys "github.com/landlock-lsm/go-landlock/landlock/syscall"
	"golang.org/x/sys/unix"
)

// ChildInit is the trampoline entry point. Host programs that launch with
// the self-re-exec trampoline must call it as the first statement of main,
// before flag parsing or any other work. When no payload is present it
// returns immediately; when one is, it installs enforcement and execs the
// target, never returning. Any installation failure exits with
// InstallFailedExit before the target runs.
func ChildInit() {
	raw := os.Getenv(PayloadEnv)
	if raw == "" {
		return
	}
	if err := runChild(raw); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", StubErrorPrefix, err)
		os.Exit(InstallFailedExit)
	}
	// Exec replaced the image; only an exec failure reaches here.
	os.Exit(InstallFailedExit)
}

func runChild(raw string) error {
	p, err := DecodePayload(raw)
	if err != nil {
		return err
	}

	// Enforcement order matters: privileges are pinned first, ceilings
	// and rules are stacked on a process that can no longer regain
	// anything, and the filter goes last so its own installation is not
	// subject to itself.
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("set no_new_privs: %w", err)
	}

	if err := applyRlimits(p.Spec); err != nil {
		return err
	}

	if p.Spec.AppArmorProfile != "" {
		if err := applyAppArmor(p.Spec.AppArmorProfile); err != nil {
			return err
		}
	}

	if p.Spec.ReadOnlyFS {
		if err := applyPathRules(p.Spec); err != nil {
			return fmt.Errorf("apply landlock: %w", err)
		}
	}

	if len(p.Spec.DenySyscalls) > 0 {
		if err := loadSeccompDenyList(p.Spec.DenySyscalls); err != nil {
			return fmt.Errorf("apply seccomp: %w", err)
		}
	}

	if p.WorkingDir != "" {
		if err := os.Chdir(p.WorkingDir); err != nil {
			return fmt.Errorf("chdir %q: %w", p.WorkingDir, err)
		}
	}

	argv := append([]string{p.Program}, p.Argv...)
	if err := unix.Exec(p.Program, argv, p.Env); err != nil {
		return fmt.Errorf("exec %q: %w", p.Program, err)
	}
	return nil
}

func applyRlimits(s Spec) error {
	if s.MemoryLimitBytes > 0 {
		lim := &unix.Rlimit{Cur: uint64(s.MemoryLimitBytes), Max: uint64(s.MemoryLimitBytes)}
		if err := unix.Setrlimit(unix.RLIMIT_AS, lim); err != nil {
			return fmt.Errorf("set RLIMIT_AS: %w", err)
		}
	}
	if s.CPULimitSecs > 0 {
		lim := &unix.Rlimit{Cur: s.CPULimitSecs, Max: s.CPULimitSecs}
		if err := unix.Setrlimit(unix.RLIMIT_CPU, lim); err != nil {
			return fmt.Errorf("set RLIMIT_CPU: %w", err)
		}
	}
	return nil
}

var (
	capsOnce sync.Once
	caps     Capabilities
)

func detectCapabilities() Capabilities {
	capsOnce.Do(func() {
		caps.ResourceLimits = true
		caps.SyscallFilter = seccomp.Supported()
		if abi, err := landlocksys.LandlockGetABIVersion(); err == nil && abi >= 1 {
			caps.PathRules = true
		}
	})
	return caps
}
