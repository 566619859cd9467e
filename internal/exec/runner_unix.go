//go:build unix

package exec

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// killGrace is how long the group gets to exit on SIGTERM before SIGKILL.
const killGrace = 100 * time.Millisecond

func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate signals the whole group: by the time the deadline fires the
// stub may already have exec'd the target, and the target may have forked
// where policy allowed it.
func terminate(pid int) {
	_ = unix.Kill(-pid, unix.SIGTERM)
	time.Sleep(killGrace)
	_ = unix.Kill(-pid, unix.SIGKILL)
}

func extractSignal(state *os.ProcessState) (syscall.Signal, bool) {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return 0, false
	}
	return status.Signal(), true
}

func extractUsage(state *os.ProcessState) *Usage {
	u := &Usage{
		UserTime:   state.UserTime(),
		SystemTime: state.SystemTime(),
	}
	if ru, ok := state.SysUsage().(*syscall.Rusage); ok {
		u.MaxRSS = int64(ru.Maxrss)
	}
	return u
}
