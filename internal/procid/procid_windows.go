//go:build windows
// +build windows

package procid

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// epoch returns the process creation time as reported by the kernel.
// Creation time survives as long as the process does, so a recycled pid
// always carries a different epoch.
func epoch(pid int) (int64, bool) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(h)

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return 0, false
	}
	return creation.Nanoseconds(), true
}

func name(pid int) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}

	base := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.TrimSuffix(base, ".exe")
}
