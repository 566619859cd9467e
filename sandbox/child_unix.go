//go:build unix && !linux && !openbsd

package sandbox

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// ChildInit is the trampoline entry point on Unix platforms without kernel
// syscall or path rules. Resource ceilings still apply: the stub installs
// rlimits before exec so MemoryLimit and CPULimit hold everywhere setrlimit
// exists. Installation failure exits with InstallFailedExit.
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

	// The launcher masks the spec by Detect before encoding. Anything
	// beyond ceilings arriving here asks for a facility this platform
	// cannot install; refuse rather than run uncontained.
	if len(p.Spec.DenySyscalls) > 0 || p.Spec.ReadOnlyFS || p.Spec.AppArmorProfile != "" {
		return fmt.Errorf("kernel enforcement unavailable on %s", runtime.GOOS)
	}

	if p.Spec.MemoryLimitBytes > 0 {
		if err := setRlimit(unix.RLIMIT_AS, uint64(p.Spec.MemoryLimitBytes)); err != nil {
			return fmt.Errorf("set RLIMIT_AS: %w", err)
		}
	}
	if p.Spec.CPULimitSecs > 0 {
		if err := setRlimit(unix.RLIMIT_CPU, p.Spec.CPULimitSecs); err != nil {
			return fmt.Errorf("set RLIMIT_CPU: %w", err)
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

// setRlimit sets both the soft and hard limit. The Rlimit field type is
// int64 on the BSDs and uint64 elsewhere; assign through inference so one
// body covers both.
func setRlimit(resource int, n uint64) error {
	var lim unix.Rlimit
	assignBoth(&lim.Cur, &lim.Max, n)
	return unix.Setrlimit(resource, &lim)
}

func assignBoth[T int64 | uint64](cur, max *T, n uint64) {
	*cur = T(n)
	*max = T(n)
}

func detectCapabilities() Capabilities {
	return Capabilities{ResourceLimits: true}
}
