// Package coord implements the loopback coordination channel between the
// daemon and browser helper clients. The wire format is newline-delimited
// UTF-8 JSON: clients report tab audio state upward, the server broadcasts
// pause directives downward.
package coord

// Client-to-server message types.
const (
	TypeMediaStateChanged = "mediaStateChanged"
	TypeTabStates         = "tabStates"
	TypeTabActivated      = "tabActivated"
	TypeTabClosed         = "tabClosed"
	TypeWindowFocused     = "windowFocused"
	TypeBrowserLostFocus  = "browserLostFocus"
)

// Server-to-client directive actions.
const (
	ActionPauseAll              = "pauseAll"
	ActionPauseAllExceptFocused = "pauseAllExceptFocused"
	ActionBrowserWindowFocused  = "browserWindowFocused"
)

// Message is a client report. Type selects which fields are meaningful;
// optional fields are pointers so absence is distinguishable from zero.
type Message struct {
	Type     string     `json:"type"`
	TabID    int        `json:"tabId,omitempty"`
	Playing  *bool      `json:"playing,omitempty"`
	WindowID *int       `json:"windowId,omitempty"`
	Tabs     []TabState `json:"tabs,omitempty"`
}

// TabState is one tab's audio state inside a tabStates snapshot.
type TabState struct {
	TabID    int  `json:"tabId"`
	Playing  bool `json:"playing"`
	WindowID *int `json:"windowId,omitempty"`
}

// Directive is a server broadcast telling clients how to act on their tabs.
type Directive struct {
	Action             string `json:"action"`
	FocusedWindowTitle string `json:"focusedWindowTitle,omitempty"`
	WindowTitle        string `json:"windowTitle,omitempty"`
	WindowHandle       int64  `json:"windowHandle,omitempty"`
}
