package domain

import (
	"context"
	"time"
)

// ChangeSource produces raw foreground focus signals.
// Implementations wrap an OS hook or poller; the callback/poll thread must
// never block, so signals are delivered through a buffered channel and
// dropped when the consumer lags.
type ChangeSource interface {
	// Start begins producing signals. It returns once the source is
	// running (or immediately with an error if the platform hook is
	// unavailable).
	Start(ctx context.Context) error

	// Stop gracefully stops the source
	Stop(ctx context.Context) error

	// Events returns a read-only channel of raw focus signals
	Events() <-chan FocusSignal
}

// CandidateProvider produces the current set of audible candidates.
// Implementations wrap an audio session enumerator; transient enumeration
// failures surface as an error so the caller can skip the cycle and retry
// on the next one.
type CandidateProvider interface {
	Snapshot(ctx context.Context) ([]AudibleCandidate, error)
}

// MediaController commands controllable media sessions.
// Pause/play outcomes are typed rather than errors: an unsupported command
// is a valid terminal state, not a failure.
type MediaController interface {
	// ListSessions enumerates currently known sessions
	ListSessions(ctx context.Context) ([]MediaSession, error)

	// TryPause asks the session identified by sessionID to pause
	TryPause(ctx context.Context, sessionID string) ControlResult

	// TryPlay asks the session identified by sessionID to resume
	TryPlay(ctx context.Context, sessionID string) ControlResult
}

// Broadcaster is the surface the orchestrator uses to diffuse browser focus
// decisions to connected coordination clients.
type Broadcaster interface {
	// NotifyBrowserFocused announces that a browser window gained OS focus
	NotifyBrowserFocused(windowTitle string, windowHandle uintptr)

	// PauseAll directs every connected client to pause its playing tabs
	PauseAll()

	// AnyTabPlaying reports whether any connected client has a playing tab
	AnyTabPlaying() bool
}

// Config exposes the resolved configuration values the pipeline components
// require. Values are fixed at load time; getters are safe for concurrent
// use.
type Config interface {
	// AudibilityThreshold is the peak level in [0,1] above which a
	// candidate counts as audible
	AudibilityThreshold() float64

	// DebounceInterval is the focus-change settle window
	DebounceInterval() time.Duration

	// PauseCooldown is the quiet window after the last settled event
	// before the orchestrator acts; zero disables the cooldown
	PauseCooldown() time.Duration

	// GraceWindow is how long a browser window stays "was just playing"
	// after its last observed playing signal
	GraceWindow() time.Duration

	// Mode selects blacklist or whitelist policy
	Mode() ListMode

	// IncludeList returns the whitelist process names
	IncludeList() []string

	// ExcludeList returns the blacklist process names
	ExcludeList() []string

	// NeverAct reports whether a process name must never be paused,
	// regardless of policy outcome
	NeverAct(name string) bool

	// BrowserProcess reports whether a process name belongs to a known
	// browser, whose tabs are coordinated individually rather than
	// treated as one opaque process
	BrowserProcess(name string) bool

	// SessionHint returns the configured session identifier for an owner
	// name, if any
	SessionHint(name string) (string, bool)

	// CoordinationAddr is the loopback address of the coordination server
	CoordinationAddr() string
}
