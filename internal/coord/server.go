package coord

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// scanBufferSize bounds a single coordination line, mirroring the host
// protocol's 1 MiB frame cap.
const scanBufferSize = 1 << 20

// clientState is the server-side aggregate for one connected client. All
// fields are owned by that client's reader goroutine except through the
// server mutex.
type clientState struct {
	id   string
	conn net.Conn

	writeMu sync.Mutex
	enc     *json.Encoder

	tabPlaying          map[int]bool
	tabWindow           map[int]int
	windowLastPlayingAt map[int]time.Time
	focusedWindowID     int
}

func (c *clientState) send(d Directive) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(d)
}

// windowPlaying reports whether any tab currently mapped to windowID is
// playing. Caller holds the server mutex.
func (c *clientState) windowPlaying(windowID int) bool {
	for tab, playing := range c.tabPlaying {
		if playing && c.tabWindow[tab] == windowID {
			return true
		}
	}
	return false
}

// Server accepts coordination clients on a loopback listener, aggregates
// their tab audio state, and diffuses pause directives between them.
type Server struct {
	logger *zap.Logger
	addr   string
	grace  time.Duration

	// now is swapped in tests to control the grace window
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*clientState

	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a coordination server that will listen on addr. grace
// is how long a window is still treated as playing after its last playing
// signal.
func NewServer(logger *zap.Logger, addr string, grace time.Duration) *Server {
	return &Server{
		logger:  logger,
		addr:    addr,
		grace:   grace,
		now:     time.Now,
		clients: make(map[string]*clientState),
	}
}

// Start binds the listener and begins accepting clients.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("coordination listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info("Coordination server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop(runCtx)
	return nil
}

// Stop closes the listener and all client connections, then waits for the
// reader goroutines to drain.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		s.ln.Close()
	}

	s.mu.Lock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the bound listener address, valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Coordination accept failed", zap.Error(err))
			continue
		}

		client := &clientState{
			id:                  uuid.NewString(),
			conn:                conn,
			enc:                 json.NewEncoder(conn),
			tabPlaying:          make(map[int]bool),
			tabWindow:           make(map[int]int),
			windowLastPlayingAt: make(map[int]time.Time),
		}

		s.mu.Lock()
		s.clients[client.id] = client
		s.mu.Unlock()

		s.logger.Info("Coordination client connected",
			zap.String("client", client.id),
			zap.String("remote", conn.RemoteAddr().String()))

		s.wg.Add(1)
		go s.readLoop(client)
	}
}

// readLoop processes one client's message stream in receipt order. On exit
// the client's aggregate state is pruned wholesale so queries never see
// ghosts of a gone connection.
func (s *Server) readLoop(client *clientState) {
	defer s.wg.Done()
	defer func() {
		client.conn.Close()
		s.mu.Lock()
		delete(s.clients, client.id)
		s.mu.Unlock()
		s.logger.Info("Coordination client disconnected", zap.String("client", client.id))
	}()

	scanner := bufio.NewScanner(client.conn)
	scanner.Buffer(make([]byte, 4096), scanBufferSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			s.logger.Warn("Dropping malformed coordination message",
				zap.String("client", client.id),
				zap.Error(err))
			continue
		}
		s.handle(client, msg)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("Coordination read ended",
			zap.String("client", client.id),
			zap.Error(err))
	}
}

func (s *Server) handle(client *clientState, msg Message) {
	switch msg.Type {
	case TypeMediaStateChanged:
		s.handleMediaStateChanged(client, msg)
	case TypeTabStates:
		s.handleTabStates(client, msg)
	case TypeTabActivated:
		s.mu.Lock()
		if msg.WindowID != nil {
			client.tabWindow[msg.TabID] = *msg.WindowID
		}
		s.mu.Unlock()
	case TypeTabClosed:
		s.mu.Lock()
		delete(client.tabPlaying, msg.TabID)
		delete(client.tabWindow, msg.TabID)
		s.mu.Unlock()
	case TypeWindowFocused:
		s.handleWindowFocused(client, msg)
	case TypeBrowserLostFocus:
		s.logger.Debug("Browser lost focus", zap.String("client", client.id))
	default:
		s.logger.Warn("Unknown coordination message type",
			zap.String("client", client.id),
			zap.String("type", msg.Type))
	}
}

func (s *Server) handleMediaStateChanged(client *clientState, msg Message) {
	if msg.Playing == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client.tabPlaying[msg.TabID] = *msg.Playing
	if msg.WindowID != nil {
		client.tabWindow[msg.TabID] = *msg.WindowID
		if *msg.Playing {
			client.windowLastPlayingAt[*msg.WindowID] = s.now()
		}
	}
}

func (s *Server) handleTabStates(client *clientState, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client.tabPlaying = make(map[int]bool, len(msg.Tabs))
	client.tabWindow = make(map[int]int, len(msg.Tabs))
	for _, tab := range msg.Tabs {
		client.tabPlaying[tab.TabID] = tab.Playing
		if tab.WindowID != nil {
			client.tabWindow[tab.TabID] = *tab.WindowID
			if tab.Playing {
				client.windowLastPlayingAt[*tab.WindowID] = s.now()
			}
		}
	}
}

// handleWindowFocused applies the grace-window heuristic: the focused
// window counts as playing if a tab in it is playing now, or one was
// playing within the grace interval. A tab can pause itself for an instant
// right as focus changes (a seek does this), and without the grace the
// competing clients would wrongly keep playing.
func (s *Server) handleWindowFocused(client *clientState, msg Message) {
	if msg.WindowID == nil {
		return
	}
	windowID := *msg.WindowID

	s.mu.Lock()
	client.tabWindow[msg.TabID] = windowID
	client.focusedWindowID = windowID

	playing := client.windowPlaying(windowID)
	if !playing {
		if last, ok := client.windowLastPlayingAt[windowID]; ok {
			playing = s.now().Sub(last) <= s.grace
		}
	}
	s.mu.Unlock()

	if !playing {
		return
	}

	s.logger.Debug("Focused window is playing, pausing other clients",
		zap.String("client", client.id),
		zap.Int("window", windowID))
	s.broadcastExcept(client.id, Directive{Action: ActionPauseAll})
}

// broadcastExcept sends d to every connected client other than trigger.
func (s *Server) broadcastExcept(trigger string, d Directive) {
	s.mu.Lock()
	targets := make([]*clientState, 0, len(s.clients))
	for id, c := range s.clients {
		if id != trigger {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.send(d); err != nil {
			s.logger.Warn("Directive send failed",
				zap.String("client", c.id),
				zap.String("action", d.Action),
				zap.Error(err))
		}
	}
}

// PauseAll tells every connected client to pause all of its tabs.
func (s *Server) PauseAll() {
	s.broadcastExcept("", Directive{Action: ActionPauseAll})
}

// NotifyBrowserFocused announces that a browser window owns the foreground.
// Clients learn which window gained focus and pause tabs everywhere else.
func (s *Server) NotifyBrowserFocused(title string, handle uintptr) {
	s.broadcastExcept("", Directive{
		Action:       ActionBrowserWindowFocused,
		WindowTitle:  title,
		WindowHandle: int64(handle),
	})
	s.broadcastExcept("", Directive{
		Action:             ActionPauseAllExceptFocused,
		FocusedWindowTitle: title,
	})
}

// AnyTabPlaying reports whether any tab of any connected client is playing.
func (s *Server) AnyTabPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		for _, playing := range c.tabPlaying {
			if playing {
				return true
			}
		}
	}
	return false
}
