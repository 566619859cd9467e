//go:build linux

package sandbox

import (
	"errors"
	"fmt"
	"syscall"

	seccomp "github.com/elastic/go-seccomp-bpf"
)

// loadSeccompDenyList installs a filter that allows everything except the
// named syscalls, which fail with EPERM. A deny is an ordinary errno to the
// tool, never a fatal signal. no_new_privs is already set by the caller.
func loadSeccompDenyList(names []string) error {
	filter := seccomp.Filter{
		NoNewPrivs: false,
		Flag:       seccomp.FilterFlagTSync,
		Policy: seccomp.Policy{
			DefaultAction: seccomp.ActionAllow,
			Syscalls: []seccomp.SyscallGroup{
				{
					Names:  names,
					Action: seccomp.Action(uint32(seccomp.ActionErrno) | uint32(syscall.EPERM)),
				},
			},
		},
	}

	if err := seccomp.LoadFilter(filter); err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EINVAL) {
			return fmt.Errorf("seccomp unavailable on this kernel (%w)", err)
		}
		return err
	}
	return nil
}
