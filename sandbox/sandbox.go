// Package sandbox derives OS enforcement from a policy and applies it inside
// the child process, after fork and before exec.
//
// Go's os/exec offers no pre-exec callback, so enforcement rides a re-exec
// trampoline: the launcher starts a stub (the host binary itself, or the
// saferun-init helper) with the run encoded in an environment payload. The
// stub's first action is ChildInit, which sets no_new_privs, installs
// resource limits, Landlock path rules and a seccomp deny filter, and then
// replaces itself with the real target via exec(2). Denied syscalls fail
// with EPERM rather than killing the process, so a sandboxed tool sees
// ordinary errno failures.
//
// This is the authoritative layer for arguments that are textually harmless
// but destructive to run: string inspection upstream cannot tell `rm -rf /`
// from a filename, the kernel rules installed here are what actually refuse
// the writes.
//
// Hosts that launch with the default self-re-exec trampoline must call
// ChildInit at the very top of main. Detect reports what the running
// platform can enforce so callers degrade visibly, never silently.
package sandbox

import "github.com/synxlabs/saferun/policy"

// Capabilities reports which enforcement mechanisms the running platform
// supports. Probed once per process.
type Capabilities struct {
	// SyscallFilter is true when a seccomp-BPF deny filter can be
	// installed.
	SyscallFilter bool

	// PathRules is true when Landlock filesystem rules are available.
	PathRules bool

	// ResourceLimits is true when per-process rlimits apply.
	ResourceLimits bool
}

// Enforced reports whether any kernel-level mechanism is available.
func (c Capabilities) Enforced() bool {
	return c.SyscallFilter || c.PathRules || c.ResourceLimits
}

// Detect returns the platform's enforcement capabilities.
func Detect() Capabilities {
	return detectCapabilities()
}

// Spec is the enforcement derived from a policy, in the form the child stub
// installs: resource ceilings, a syscall deny list, and filesystem rules.
type Spec struct {
	// MemoryLimitBytes is installed as RLIMIT_AS.
	MemoryLimitBytes int64 `json:"memory_limit_bytes"`

	// CPULimitSecs is installed as RLIMIT_CPU.
	CPULimitSecs uint64 `json:"cpu_limit_secs"`

	// DenySyscalls are refused with EPERM via seccomp.
	DenySyscalls []string `json:"deny_syscalls,omitempty"`

	// ReadOnlyFS installs Landlock rules granting read everywhere and
	// write nowhere except WritablePaths.
	ReadOnlyFS bool `json:"read_only_fs"`

	// WritablePaths are directory roots granted read-write under
	// ReadOnlyFS.
	WritablePaths []string `json:"writable_paths,omitempty"`

	// AppArmorProfile, when set, is applied via /proc/self/attr/exec
	// before the target runs.
	AppArmorProfile string `json:"apparmor_profile,omitempty"`
}

// Syscall families denied per policy switch. Linux names; other platforms
// never install a filter.
var (
	networkSyscalls = []string{
		"socket", "socketpair", "connect", "bind", "listen",
		"accept", "accept4", "sendto", "sendmsg", "sendmmsg",
		"recvfrom", "recvmsg", "recvmmsg", "shutdown",
		"getsockopt", "setsockopt", "getsockname", "getpeername",
	}

	// Write-shaped syscalls that can be denied wholesale. Write-mode
	// open/openat cannot be singled out without argument inspection
	// (denying them outright breaks the dynamic loader's read-only
	// opens); Landlock's read-only rule set covers those precisely.
	fileWriteSyscalls = []string{
		"creat", "rename", "renameat", "renameat2",
		"unlink", "unlinkat", "rmdir",
		"mkdir", "mkdirat", "mknod", "mknodat",
		"link", "linkat", "symlink", "symlinkat",
		"truncate", "ftruncate",
		"chmod", "fchmod", "fchmodat",
		"chown", "fchown", "lchown", "fchownat",
	}

	subprocessSyscalls = []string{
		"fork", "vfork", "clone", "clone3",
	}
)

// FromPolicy derives the child-side enforcement for a policy. Resource
// ceilings always carry over; the deny list and filesystem rules track the
// closed capability switches.
func FromPolicy(pol policy.Policy) Spec {
	s := Spec{
		MemoryLimitBytes: pol.MemoryLimit,
		CPULimitSecs:     pol.CPULimit,
	}

	if !pol.AllowNetwork {
		s.DenySyscalls = append(s.DenySyscalls, networkSyscalls...)
	}
	if !pol.Restrictions.AllowSubprocesses {
		s.DenySyscalls = append(s.DenySyscalls, subprocessSyscalls...)
	}

	if !pol.Restrictions.AllowFileWrites {
		s.DenySyscalls = append(s.DenySyscalls, fileWriteSyscalls...)
		s.ReadOnlyFS = true
	} else if len(pol.AllowedPaths) > 0 {
		// Writes allowed, but only under the policy's roots.
		s.ReadOnlyFS = true
		s.WritablePaths = append([]string(nil), pol.AllowedPaths...)
	}

	return s
}

// MaskBy drops the enforcement the running platform genuinely cannot
// install, leaving the rest intact. The launcher masks every spec before
// encoding it, so an absent facility degrades the run visibly (Detect
// reports the gap) instead of failing every launch. Install failures of
// facilities the platform does support still fail closed in the child.
func (s Spec) MaskBy(caps Capabilities) Spec {
	if !caps.SyscallFilter {
		s.DenySyscalls = nil
	}
	if !caps.PathRules {
		s.ReadOnlyFS = false
		s.WritablePaths = nil
	}
	if !caps.ResourceLimits {
		s.MemoryLimitBytes = 0
		s.CPULimitSecs = 0
	}
	return s
}

// Required reports whether the spec carries anything the launcher must
// install in the child. An all-open policy with no ceilings runs direct.
func (s Spec) Required() bool {
	return s.MemoryLimitBytes > 0 ||
		s.CPULimitSecs > 0 ||
		len(s.DenySyscalls) > 0 ||
		s.ReadOnlyFS ||
		s.AppArmorProfile != ""
}
