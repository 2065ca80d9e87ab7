//go:build linux
// +build linux

package focus

import (
	"fmt"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
	"github.com/hushd/hushd/internal/procid"
)

// x11Querier reads the EWMH active window from the X server. Wayland
// sessions without XWayland will fail to connect, which surfaces as a
// degraded start (no focus tracking).
type x11Querier struct {
	logger *zap.Logger
	conn   *xgb.Conn
	root   xproto.Window

	activeWindowAtom xproto.Atom
	wmPidAtom        xproto.Atom
	wmNameAtom       xproto.Atom
}

func newQuerier(logger *zap.Logger) (Querier, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	q := &x11Querier{
		logger: logger,
		conn:   conn,
		root:   xproto.Setup(conn).DefaultScreen(conn).Root,
	}

	for _, a := range []struct {
		name string
		dst  *xproto.Atom
	}{
		{"_NET_ACTIVE_WINDOW", &q.activeWindowAtom},
		{"_NET_WM_PID", &q.wmPidAtom},
		{"_NET_WM_NAME", &q.wmNameAtom},
	} {
		reply, err := xproto.InternAtom(conn, true, uint16(len(a.name)), a.name).Reply()
		if err != nil || reply.Atom == xproto.AtomNone {
			conn.Close()
			return nil, fmt.Errorf("intern atom %s: window manager is not EWMH compliant", a.name)
		}
		*a.dst = reply.Atom
	}

	logger.Info("X11 foreground querier initialized")
	return q, nil
}

func (q *x11Querier) Foreground() (domain.FocusSignal, bool) {
	active, err := xproto.GetProperty(q.conn, false, q.root, q.activeWindowAtom,
		xproto.GetPropertyTypeAny, 0, 1).Reply()
	if err != nil || active.ValueLen == 0 || len(active.Value) < 4 {
		return domain.FocusSignal{}, false
	}

	window := xproto.Window(xgb.Get32(active.Value))
	if window == 0 {
		return domain.FocusSignal{}, false
	}

	pidProp, err := xproto.GetProperty(q.conn, false, window, q.wmPidAtom,
		xproto.GetPropertyTypeAny, 0, 1).Reply()
	if err != nil || pidProp.ValueLen == 0 || len(pidProp.Value) < 4 {
		return domain.FocusSignal{}, false
	}

	owner := domain.OwnerID(xgb.Get32(pidProp.Value))
	return domain.FocusSignal{
		Owner:  owner,
		Window: uintptr(window),
		Name:   procid.Name(owner),
		Title:  q.windowTitle(window),
		At:     time.Now(),
	}, true
}

func (q *x11Querier) Close() error {
	q.conn.Close()
	return nil
}

func (q *x11Querier) windowTitle(window xproto.Window) string {
	reply, err := xproto.GetProperty(q.conn, false, window, q.wmNameAtom,
		xproto.GetPropertyTypeAny, 0, 1<<12).Reply()
	if err != nil || reply.ValueLen == 0 {
		return ""
	}
	return string(reply.Value)
}
