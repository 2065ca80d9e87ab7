// Package media talks to controllable media sessions. The MPRIS controller
// is the concrete session provider on systems with a D-Bus session bus; the
// resolver maps process identities onto sessions.
package media

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"

	propPlaybackStatus = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	propCanPause       = "org.mpris.MediaPlayer2.Player.CanPause"
	propCanPlay        = "org.mpris.MediaPlayer2.Player.CanPlay"
	propIdentity       = "org.mpris.MediaPlayer2.Identity"

	methodPause = "org.mpris.MediaPlayer2.Player.Pause"
	methodPlay  = "org.mpris.MediaPlayer2.Player.Play"
)

// Controller lists and commands MPRIS media sessions over the session bus.
// It doubles as a degraded CandidateProvider: playing sessions become
// audible candidates without peak metering.
type Controller struct {
	logger *zap.Logger

	mu   sync.Mutex
	conn DBusClient
	// seen tracks the last observed state per session so LastUpdated only
	// moves when a session actually changes
	seen map[string]sessionTrack
}

type sessionTrack struct {
	state domain.PlaybackState
	at    time.Time
}

// NewController creates an MPRIS controller. The bus connection is opened
// lazily on first use so construction never fails.
func NewController(logger *zap.Logger) *Controller {
	return &Controller{
		logger: logger,
		seen:   make(map[string]sessionTrack),
	}
}

// Close releases the bus connection if one was opened
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Controller) client() (DBusClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := NewStdDBusClient()
	if err != nil {
		return nil, fmt.Errorf("session bus connection failed: %w", err)
	}
	c.conn = conn
	c.logger.Info("Connected to session bus for media control")
	return c.conn, nil
}

// ListSessions enumerates the MPRIS players currently on the bus
func (c *Controller) ListSessions(ctx context.Context) ([]domain.MediaSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.client()
	if err != nil {
		return nil, err
	}

	names, err := conn.ListNames()
	if err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}

	now := time.Now()
	var sessions []domain.MediaSession
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}

		state := c.playbackState(conn, name)
		identity := ""
		if v, err := conn.GetProperty(name, mprisObjectPath, propIdentity); err == nil {
			if s, ok := v.Value().(string); ok {
				identity = s
			}
		}

		sessions = append(sessions, domain.MediaSession{
			ID:          name,
			AppID:       name,
			DisplayName: identity,
			State:       state,
			LastUpdated: c.touch(name, state, now),
		})
	}

	return sessions, nil
}

// TryPause asks the session to pause
func (c *Controller) TryPause(ctx context.Context, sessionID string) domain.ControlResult {
	return c.command(ctx, sessionID, propCanPause, methodPause)
}

// TryPlay asks the session to resume
func (c *Controller) TryPlay(ctx context.Context, sessionID string) domain.ControlResult {
	return c.command(ctx, sessionID, propCanPlay, methodPlay)
}

func (c *Controller) command(ctx context.Context, sessionID, capProp, method string) domain.ControlResult {
	if ctx.Err() != nil {
		return domain.ControlFailed
	}

	conn, err := c.client()
	if err != nil {
		c.logger.Warn("Media command without bus connection", zap.Error(err))
		return domain.ControlFailed
	}

	if v, err := conn.GetProperty(sessionID, mprisObjectPath, capProp); err == nil {
		if capable, ok := v.Value().(bool); ok && !capable {
			return domain.ControlNotSupported
		}
	}
	// Capability query failures fall through to the call itself.

	if err := conn.Call(sessionID, mprisObjectPath, method); err != nil {
		c.logger.Warn("Media command failed",
			zap.String("session", sessionID),
			zap.String("method", method),
			zap.Error(err))
		return domain.ControlFailed
	}
	return domain.ControlSuccess
}

// Snapshot reports playing sessions as audible candidates. MPRIS exposes no
// peak metering, so candidates carry NaN peaks and audibility degrades to
// playback state alone.
func (c *Controller) Snapshot(ctx context.Context) ([]domain.AudibleCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.client()
	if err != nil {
		return nil, err
	}

	names, err := conn.ListNames()
	if err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}

	now := time.Now()
	var candidates []domain.AudibleCandidate
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}

		pid, err := conn.GetConnectionPID(name)
		if err != nil || pid == 0 {
			// Player vanished between ListNames and the pid query.
			continue
		}

		state := c.playbackState(conn, name)
		candidates = append(candidates, domain.AudibleCandidate{
			Owner:    domain.OwnerID(pid),
			Name:     strings.TrimPrefix(name, mprisPrefix),
			Active:   state == domain.StatePlaying,
			Peak:     math.NaN(),
			Observed: now,
		})
	}

	return candidates, nil
}

func (c *Controller) playbackState(conn DBusClient, name string) domain.PlaybackState {
	v, err := conn.GetProperty(name, mprisObjectPath, propPlaybackStatus)
	if err != nil {
		return domain.StateUnknown
	}
	s, ok := v.Value().(string)
	if !ok {
		return domain.StateUnknown
	}

	switch s {
	case "Playing":
		return domain.StatePlaying
	case "Paused":
		return domain.StatePaused
	case "Stopped":
		return domain.StateStopped
	default:
		return domain.StateUnknown
	}
}

// touch returns the LastUpdated timestamp for a session, advancing it only
// when the observed state differs from the previous observation
func (c *Controller) touch(name string, state domain.PlaybackState, now time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.seen[name]
	if ok && prev.state == state {
		return prev.at
	}
	c.seen[name] = sessionTrack{state: state, at: now}
	return now
}
