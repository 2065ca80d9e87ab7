package domain

import "time"

// OwnerID identifies something that can play audio. At the OS layer it is a
// process id; at the browser layer it is a tab id.
type OwnerID int

// NoOwner is the zero-history sentinel used before any focus change has been
// observed.
const NoOwner OwnerID = -1

// PlaybackState represents the reported state of a media session
type PlaybackState string

const (
	// StateUnknown indicates the session did not report a state
	StateUnknown PlaybackState = "Unknown"
	// StatePlaying indicates the session is currently playing
	StatePlaying PlaybackState = "Playing"
	// StatePaused indicates the session is paused
	StatePaused PlaybackState = "Paused"
	// StateStopped indicates the session is stopped
	StateStopped PlaybackState = "Stopped"
)

// FocusSignal is a raw "focus changed" observation as produced by a
// ChangeSource. Signals arrive at arbitrary frequency; only the last one
// before a debounce settle is observed downstream.
type FocusSignal struct {
	// Owner is the process that owns the newly focused window
	Owner OwnerID
	// Window is the opaque handle of the focused window
	Window uintptr
	// Name is the owner's process name, best effort
	Name string
	// Title is the focused window's title, best effort
	Title string
	// At is when the signal was observed
	At time.Time
}

// FocusChangeEvent is a settled focus change emitted by the Debouncer
type FocusChangeEvent struct {
	// Previous is the owner emitted by the prior settle, or NoOwner
	Previous OwnerID
	// Current is the owner of the newly focused window
	Current OwnerID
	// Window is the focused window handle
	Window uintptr
	// Name is the current owner's process name, best effort
	Name string
	// Title is the focused window's title, best effort
	Title string
	// At is when the settled signal was originally observed
	At time.Time
}

// AudibleCandidate is one audio channel or frame attributed to an owner.
// Multiple candidates may share an owner and are merged by the
// AudibilityFilter.
type AudibleCandidate struct {
	Owner  OwnerID
	Name   string
	Active bool
	// Peak is the channel's peak level in [0,1], or NaN when the source has
	// no peak metering (tab-level candidates)
	Peak     float64
	Observed time.Time
}

// AudibleOwner is the merged, owner-level result of audibility filtering
type AudibleOwner struct {
	ID   OwnerID
	Name string
	// Peak is the loudest peak seen across the owner's candidates, kept for
	// logging only
	Peak float64
}

// MediaSession is a transient reference to a controllable media session.
// Lifetime is owned by the media transport layer; the resolver only holds
// these between one ListSessions call and the following command.
type MediaSession struct {
	// ID is the session key used for pause/play commands
	ID string
	// AppID is the application identifier the session reports
	AppID string
	// DisplayName is a human readable session name, may be empty
	DisplayName string
	State       PlaybackState
	LastUpdated time.Time
}

// ControlResult is the typed outcome of a pause/play command
type ControlResult int

const (
	// ControlSuccess means the command was delivered and accepted
	ControlSuccess ControlResult = iota
	// ControlNotSupported means the session exists but does not support
	// the requested command
	ControlNotSupported
	// ControlFailed means the underlying call failed
	ControlFailed
)

func (r ControlResult) String() string {
	switch r {
	case ControlSuccess:
		return "success"
	case ControlNotSupported:
		return "not_supported"
	case ControlFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ListMode selects how the policy engine interprets its process lists
type ListMode string

const (
	// Blacklist pauses every audible owner not explicitly excluded
	Blacklist ListMode = "blacklist"
	// Whitelist pauses only explicitly included owners
	Whitelist ListMode = "whitelist"
)

// PolicyDecision is the pure output of a policy evaluation. The focused
// owner and the running process itself are never present in ToPause.
type PolicyDecision struct {
	ToPause []OwnerID
}
