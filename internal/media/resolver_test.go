package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// fakeController serves a canned session list
type fakeController struct {
	sessions []domain.MediaSession
	err      error
}

func (f *fakeController) ListSessions(ctx context.Context) ([]domain.MediaSession, error) {
	return f.sessions, f.err
}

func (f *fakeController) TryPause(ctx context.Context, sessionID string) domain.ControlResult {
	return domain.ControlSuccess
}

func (f *fakeController) TryPlay(ctx context.Context, sessionID string) domain.ControlResult {
	return domain.ControlSuccess
}

type fakeHints map[string]string

func (f fakeHints) SessionHint(name string) (string, bool) {
	id, ok := f[name]
	return id, ok
}

func session(id, appID string, state domain.PlaybackState, updated time.Time) domain.MediaSession {
	return domain.MediaSession{ID: id, AppID: appID, State: state, LastUpdated: updated}
}

func TestResolveNameMatchBeatsPlayingFallback(t *testing.T) {
	base := time.Now()
	// spotify is paused, vlc is playing: a named lookup for spotify must
	// still land on spotify, never on the unrelated playing session.
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("org.mpris.MediaPlayer2.vlc", "org.mpris.MediaPlayer2.vlc", domain.StatePlaying, base),
		session("org.mpris.MediaPlayer2.spotify", "org.mpris.MediaPlayer2.spotify", domain.StatePaused, base),
	}}
	r := NewResolver(zap.NewNop(), ctrl, nil)

	res, err := r.Resolve(context.Background(), "spotify")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "org.mpris.MediaPlayer2.spotify", res.Session.ID)
}

func TestResolveReverseSegmentMatch(t *testing.T) {
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("org.mpris.MediaPlayer2.vlc", "org.mpris.MediaPlayer2.vlc", domain.StateStopped, time.Now()),
	}}
	r := NewResolver(zap.NewNop(), ctrl, nil)

	// Owner name contains the identifier's last segment
	res, err := r.Resolve(context.Background(), "vlc-wrapper")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "org.mpris.MediaPlayer2.vlc", res.Session.ID)
}

func TestResolveHintTable(t *testing.T) {
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("session-1", "Music.UI", domain.StatePaused, time.Now()),
	}}
	r := NewResolver(zap.NewNop(), ctrl, fakeHints{"groove": "Music.UI"})

	res, err := r.Resolve(context.Background(), "groove")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "session-1", res.Session.ID)
}

func TestResolveSinglePlayingFallback(t *testing.T) {
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("a", "some.player", domain.StatePlaying, time.Now()),
		session("b", "other.player", domain.StatePaused, time.Now()),
	}}
	r := NewResolver(zap.NewNop(), ctrl, nil)

	res, err := r.Resolve(context.Background(), "unrelated")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "a", res.Session.ID)
}

func TestResolveMostRecentlyUpdatedPlaying(t *testing.T) {
	base := time.Now()
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("older", "some.player", domain.StatePlaying, base.Add(-time.Minute)),
		session("newer", "other.player", domain.StatePlaying, base),
	}}
	r := NewResolver(zap.NewNop(), ctrl, nil)

	res, err := r.Resolve(context.Background(), "unrelated")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "newer", res.Session.ID)
}

func TestResolveAmbiguousOnTimestampTie(t *testing.T) {
	base := time.Now()
	ctrl := &fakeController{sessions: []domain.MediaSession{
		session("a", "some.player", domain.StatePlaying, base),
		session("b", "other.player", domain.StatePlaying, base),
	}}
	r := NewResolver(zap.NewNop(), ctrl, nil)

	res, err := r.Resolve(context.Background(), "unrelated")
	require.NoError(t, err)
	assert.Equal(t, StatusAmbiguous, res.Status)
}

func TestResolveNotFound(t *testing.T) {
	tests := []struct {
		name     string
		sessions []domain.MediaSession
	}{
		{name: "no sessions at all", sessions: nil},
		{
			name: "nothing playing, no name match",
			sessions: []domain.MediaSession{
				session("a", "some.player", domain.StatePaused, time.Now()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(zap.NewNop(), &fakeController{sessions: tt.sessions}, nil)

			res, err := r.Resolve(context.Background(), "unrelated")
			require.NoError(t, err)
			assert.Equal(t, StatusNotFound, res.Status)
		})
	}
}

func TestResolveEnumerationFailure(t *testing.T) {
	r := NewResolver(zap.NewNop(), &fakeController{err: errors.New("bus gone")}, nil)

	_, err := r.Resolve(context.Background(), "spotify")
	assert.Error(t, err)
}
