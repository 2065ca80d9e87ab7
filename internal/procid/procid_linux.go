//go:build linux
// +build linux

package procid

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// statStartTimeField is the index of starttime among the fields that follow
// the "(comm)" section of /proc/<pid>/stat. starttime is field 22 overall;
// fields 1 and 2 are pid and comm, and state is the first field after the
// closing paren.
const statStartTimeField = 19

// epoch reads the process start time, in clock ticks since boot, from
// /proc/<pid>/stat. The comm field may itself contain spaces and parens, so
// parsing starts after the last ')'.
func epoch(pid int) (int64, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, false
	}

	raw := string(data)
	end := strings.LastIndexByte(raw, ')')
	if end < 0 || end+2 > len(raw) {
		return 0, false
	}

	fields := strings.Fields(raw[end+2:])
	if len(fields) <= statStartTimeField {
		return 0, false
	}

	start, err := strconv.ParseInt(fields[statStartTimeField], 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}

func name(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
