//go:build windows
// +build windows

package focus

import (
	"time"

	"github.com/lxn/win"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/hushd/hushd/internal/domain"
	"github.com/hushd/hushd/internal/procid"
)

// winQuerier reads the foreground window through user32
type winQuerier struct {
	logger *zap.Logger
}

func newQuerier(logger *zap.Logger) (Querier, error) {
	logger.Info("Windows foreground querier initialized")
	return &winQuerier{logger: logger}, nil
}

func (q *winQuerier) Foreground() (domain.FocusSignal, bool) {
	hwnd := win.GetForegroundWindow()
	if hwnd == 0 {
		return domain.FocusSignal{}, false
	}

	var pid uint32
	if win.GetWindowThreadProcessId(hwnd, &pid) == 0 || pid == 0 {
		return domain.FocusSignal{}, false
	}

	owner := domain.OwnerID(pid)
	return domain.FocusSignal{
		Owner:  owner,
		Window: uintptr(hwnd),
		Name:   procid.Name(owner),
		Title:  windowTitle(hwnd),
		At:     time.Now(),
	}, true
}

func (q *winQuerier) Close() error { return nil }

func windowTitle(hwnd win.HWND) string {
	length := win.GetWindowTextLength(hwnd)
	if length <= 0 {
		return ""
	}

	buf := make([]uint16, length+1)
	if win.GetWindowText(hwnd, &buf[0], length+1) <= 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}
