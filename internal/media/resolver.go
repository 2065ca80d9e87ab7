package media

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// ResolutionStatus is the outcome of a session resolution attempt
type ResolutionStatus int

const (
	// StatusSuccess means a single session was identified
	StatusSuccess ResolutionStatus = iota
	// StatusNotFound means the owner has no controllable session. This is
	// a valid terminal outcome, not an error.
	StatusNotFound
	// StatusAmbiguous means the heuristic could not pick uniquely
	StatusAmbiguous
)

func (s ResolutionStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Resolution carries the resolved session when Status is StatusSuccess
type Resolution struct {
	Status  ResolutionStatus
	Session domain.MediaSession
}

// HintSource supplies configured owner-name to session-identifier hints
type HintSource interface {
	SessionHint(name string) (string, bool)
}

// Resolver maps an owner name to a concrete media session using ordered,
// short-circuiting rules. Name matching deliberately outranks the
// "single playing session" fallbacks: when two unrelated apps are playing
// at once, a named match must never be absorbed into the wrong session.
type Resolver struct {
	logger     *zap.Logger
	controller domain.MediaController
	hints      HintSource
}

// NewResolver creates a resolver over the given session controller
func NewResolver(logger *zap.Logger, controller domain.MediaController, hints HintSource) *Resolver {
	return &Resolver{logger: logger, controller: controller, hints: hints}
}

// Resolve finds the session for an owner name. The returned error marks a
// transient enumeration failure (skip this cycle); every heuristic outcome,
// including "no session at all", arrives through the Resolution status.
func (r *Resolver) Resolve(ctx context.Context, ownerName string) (Resolution, error) {
	sessions, err := r.controller.ListSessions(ctx)
	if err != nil {
		return Resolution{Status: StatusNotFound}, err
	}

	r.logger.Debug("Resolving session",
		zap.String("owner", ownerName),
		zap.Int("sessions", len(sessions)))

	if len(sessions) == 0 {
		return Resolution{Status: StatusNotFound}, nil
	}

	// 1) Case-insensitive substring match in either direction between the
	// owner name and the session's application identifier.
	for _, s := range sessions {
		if s.AppID == "" {
			continue
		}
		if containsFold(s.AppID, ownerName) || containsFold(ownerName, lastSegment(s.AppID)) {
			r.logger.Debug("Resolved by name match",
				zap.String("owner", ownerName),
				zap.String("appID", s.AppID))
			return Resolution{Status: StatusSuccess, Session: s}, nil
		}
	}

	// 2) Explicit owner-name to session-identifier hint table.
	if r.hints != nil {
		if hinted, ok := r.hints.SessionHint(ownerName); ok {
			for _, s := range sessions {
				if strings.EqualFold(s.AppID, hinted) || strings.EqualFold(s.ID, hinted) {
					r.logger.Debug("Resolved by hint",
						zap.String("owner", ownerName),
						zap.String("appID", s.AppID))
					return Resolution{Status: StatusSuccess, Session: s}, nil
				}
			}
		}
	}

	// 3) Exactly one playing session: take it.
	// 4) Several playing: take the most recently updated, unless tied.
	var playing []domain.MediaSession
	for _, s := range sessions {
		if s.State == domain.StatePlaying {
			playing = append(playing, s)
		}
	}

	switch len(playing) {
	case 0:
		return Resolution{Status: StatusNotFound}, nil
	case 1:
		r.logger.Debug("Resolved to the only playing session",
			zap.String("owner", ownerName),
			zap.String("appID", playing[0].AppID))
		return Resolution{Status: StatusSuccess, Session: playing[0]}, nil
	}

	best := playing[0]
	tied := false
	for _, s := range playing[1:] {
		switch {
		case s.LastUpdated.After(best.LastUpdated):
			best = s
			tied = false
		case s.LastUpdated.Equal(best.LastUpdated):
			tied = true
		}
	}
	if tied {
		r.logger.Debug("Resolution ambiguous between playing sessions",
			zap.String("owner", ownerName),
			zap.Int("playing", len(playing)))
		return Resolution{Status: StatusAmbiguous}, nil
	}

	r.logger.Debug("Resolved to most recently updated playing session",
		zap.String("owner", ownerName),
		zap.String("appID", best.AppID))
	return Resolution{Status: StatusSuccess, Session: best}, nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// lastSegment returns the text after the final dot, so reverse matching an
// identifier like "org.mpris.MediaPlayer2.spotify" uses "spotify"
func lastSegment(appID string) string {
	if i := strings.LastIndexByte(appID, '.'); i >= 0 {
		return appID[i+1:]
	}
	return appID
}
