// Package procid answers identity questions about local processes: whether a
// pid is alive, its start epoch, and its executable name. The epoch is what
// fences the paused-state ledger against pid reuse.
package procid

import (
	"os"

	"github.com/hushd/hushd/internal/domain"
)

// Self returns the running process's own owner identity
func Self() domain.OwnerID {
	return domain.OwnerID(os.Getpid())
}

// Epoch returns a value that distinguishes the current holder of a pid from
// any earlier process that had the same pid. The second return is false when
// the process no longer exists.
func Epoch(owner domain.OwnerID) (int64, bool) {
	return epoch(int(owner))
}

// Name returns the process name for a pid, or "" when it cannot be read
func Name(owner domain.OwnerID) string {
	return name(int(owner))
}

// Alive reports whether the pid currently refers to a live process
func Alive(owner domain.OwnerID) bool {
	_, ok := epoch(int(owner))
	return ok
}
