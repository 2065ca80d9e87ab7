// Package browser implements the native messaging host side of the tab
// controller: it speaks the length-prefixed host protocol with a browser
// extension, keeps a registry of the extension's tabs, pauses the
// previously active tab on tab and window switches, and forwards every
// report to the coordination server.
package browser

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/coord"
	"github.com/hushd/hushd/internal/hostproto"
)

// Forwarder relays tab reports to the coordination server. A nil send error
// is not required for local tab control to work; forwarding is best-effort.
type Forwarder interface {
	Send(coord.Message) error
}

// command is a host-to-extension frame. getTabStates and pauseTab originate
// here; the remaining actions are relayed coordination directives.
type command struct {
	Action             string `json:"action"`
	TabID              int    `json:"tabId,omitempty"`
	FocusedWindowTitle string `json:"focusedWindowTitle,omitempty"`
	WindowTitle        string `json:"windowTitle,omitempty"`
	WindowHandle       int64  `json:"windowHandle,omitempty"`
}

const (
	actionGetTabStates = "getTabStates"
	actionPauseTab     = "pauseTab"
)

// Session drives one extension connection over a duplex frame stream.
// Run owns the tab registry; ApplyDirective may be called from another
// goroutine since frame writes are serialized.
type Session struct {
	logger  *zap.Logger
	reader  *hostproto.Reader
	writer  *hostproto.Writer
	forward Forwarder

	tabPlaying map[int]bool
	tabWindow  map[int]int

	lastActiveTab    int
	lastActiveWindow int
}

// NewSession creates a session reading extension frames from in and writing
// commands to out. forward may be nil for standalone operation.
func NewSession(logger *zap.Logger, in io.Reader, out io.Writer, forward Forwarder) *Session {
	return &Session{
		logger:           logger,
		reader:           hostproto.NewReader(in),
		writer:           hostproto.NewWriter(out),
		forward:          forward,
		tabPlaying:       make(map[int]bool),
		tabWindow:        make(map[int]int),
		lastActiveTab:    -1,
		lastActiveWindow: -1,
	}
}

// Run requests an initial tab snapshot and processes extension frames until
// the stream closes. The browser closing stdin is a clean shutdown.
func (s *Session) Run() error {
	if err := s.writer.WriteFrame(command{Action: actionGetTabStates}); err != nil {
		s.logger.Warn("Initial tab state request failed", zap.Error(err))
	}

	for {
		var msg coord.Message
		if err := s.reader.ReadFrame(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("Extension stream closed")
				return nil
			}
			return err
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg coord.Message) {
	switch msg.Type {
	case coord.TypeMediaStateChanged:
		if msg.Playing == nil {
			return
		}
		s.tabPlaying[msg.TabID] = *msg.Playing
		if msg.WindowID != nil {
			s.tabWindow[msg.TabID] = *msg.WindowID
		}
	case coord.TypeTabStates:
		s.tabPlaying = make(map[int]bool, len(msg.Tabs))
		s.tabWindow = make(map[int]int, len(msg.Tabs))
		for _, tab := range msg.Tabs {
			s.tabPlaying[tab.TabID] = tab.Playing
			if tab.WindowID != nil {
				s.tabWindow[tab.TabID] = *tab.WindowID
			}
		}
	case coord.TypeTabActivated:
		s.onTabActivated(msg)
	case coord.TypeTabClosed:
		delete(s.tabPlaying, msg.TabID)
		delete(s.tabWindow, msg.TabID)
		if s.lastActiveTab == msg.TabID {
			s.lastActiveTab = -1
		}
	case coord.TypeWindowFocused:
		s.onWindowFocused(msg)
	case coord.TypeBrowserLostFocus:
		// Nothing local to do; the server wants to know.
	default:
		s.logger.Warn("Unknown extension message type", zap.String("type", msg.Type))
		return
	}

	s.relay(msg)
}

// onTabActivated pauses the previously active tab when the user switches
// tabs within the same window and the old tab was playing.
func (s *Session) onTabActivated(msg coord.Message) {
	if msg.WindowID == nil {
		return
	}
	windowID := *msg.WindowID

	prev := s.lastActiveTab
	if prev != -1 && prev != msg.TabID && s.lastActiveWindow == windowID && s.tabPlaying[prev] {
		s.pauseTab(prev)
	}

	s.lastActiveTab = msg.TabID
	s.lastActiveWindow = windowID
	s.tabWindow[msg.TabID] = windowID
}

// onWindowFocused pauses the previous window's active tab when focus moves
// between browser windows; the coordination server handles pausing other
// clients.
func (s *Session) onWindowFocused(msg coord.Message) {
	if msg.WindowID == nil {
		return
	}
	windowID := *msg.WindowID

	if s.lastActiveWindow != -1 && s.lastActiveWindow != windowID &&
		s.lastActiveTab != -1 && s.tabPlaying[s.lastActiveTab] {
		s.pauseTab(s.lastActiveTab)
	}

	s.lastActiveTab = msg.TabID
	s.lastActiveWindow = windowID
	s.tabWindow[msg.TabID] = windowID
}

func (s *Session) pauseTab(tabID int) {
	s.logger.Debug("Pausing previously active tab", zap.Int("tab", tabID))
	if err := s.writer.WriteFrame(command{Action: actionPauseTab, TabID: tabID}); err != nil {
		s.logger.Warn("Pause command failed", zap.Int("tab", tabID), zap.Error(err))
		return
	}
	s.tabPlaying[tabID] = false
}

func (s *Session) relay(msg coord.Message) {
	if s.forward == nil {
		return
	}
	if err := s.forward.Send(msg); err != nil {
		// Standalone mode: local tab control keeps working.
		s.logger.Debug("Coordination forward failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// ApplyDirective relays a coordination directive to the extension.
func (s *Session) ApplyDirective(d coord.Directive) {
	if err := s.writer.WriteFrame(command{
		Action:             d.Action,
		FocusedWindowTitle: d.FocusedWindowTitle,
		WindowTitle:        d.WindowTitle,
		WindowHandle:       d.WindowHandle,
	}); err != nil {
		s.logger.Warn("Directive relay failed", zap.String("action", d.Action), zap.Error(err))
	}
}
