//go:build windows

package exec

import (
	"os"
	"syscall"
)

func procAttr() *syscall.SysProcAttr {
	return nil
}

// terminate has no graceful phase on Windows; Kill is the only portable
// forced stop.
func terminate(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}

func extractSignal(state *os.ProcessState) (syscall.Signal, bool) {
	return 0, false
}

func extractUsage(state *os.ProcessState) *Usage {
	return &Usage{
		UserTime:   state.UserTime(),
		SystemTime: state.SystemTime(),
	}
}
