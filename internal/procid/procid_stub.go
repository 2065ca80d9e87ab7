//go:build !linux && !windows
// +build !linux,!windows

package procid

import (
	"os"
	"syscall"
)

// epoch falls back to liveness-only fencing on platforms without a cheap
// start-time query: the epoch is constant, so reuse detection degrades to
// "process exists".
func epoch(pid int) (int64, bool) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return 0, true
}

func name(pid int) string {
	return ""
}
