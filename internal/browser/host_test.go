package browser

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/coord"
	"github.com/hushd/hushd/internal/hostproto"
)

type recordingForwarder struct {
	sent []coord.Message
	err  error
}

func (f *recordingForwarder) Send(msg coord.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func intp(v int) *int { return &v }
func boolp(v bool) *bool { return &v }

// frameInput encodes extension messages as a host-protocol byte stream
func frameInput(t *testing.T, msgs ...coord.Message) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := hostproto.NewWriter(&buf)
	for _, m := range msgs {
		require.NoError(t, w.WriteFrame(m))
	}
	return &buf
}

// decodeOutput reads every command frame the session wrote
func decodeOutput(t *testing.T, buf *bytes.Buffer) []command {
	t.Helper()
	r := hostproto.NewReader(buf)
	var cmds []command
	for {
		var c command
		err := r.ReadFrame(&c)
		if errors.Is(err, io.EOF) {
			return cmds
		}
		require.NoError(t, err)
		cmds = append(cmds, c)
	}
}

func runSession(t *testing.T, fwd Forwarder, msgs ...coord.Message) []command {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(zap.NewNop(), frameInput(t, msgs...), &out, fwd)
	require.NoError(t, s.Run())
	return decodeOutput(t, &out)
}

func TestRunRequestsInitialTabStates(t *testing.T) {
	cmds := runSession(t, nil)
	require.Len(t, cmds, 1)
	assert.Equal(t, actionGetTabStates, cmds[0].Action)
}

func TestSameWindowTabSwitchPausesPreviousTab(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeTabActivated, TabID: 2, WindowID: intp(10)},
	)

	require.Len(t, cmds, 2)
	assert.Equal(t, actionPauseTab, cmds[1].Action)
	assert.Equal(t, 1, cmds[1].TabID)
}

func TestTabSwitchToSilentTabIsQuiet(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeTabActivated, TabID: 2, WindowID: intp(10)},
	)

	require.Len(t, cmds, 1, "no pause for a tab that was not playing")
}

func TestWindowSwitchPausesPreviousWindowTab(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeWindowFocused, TabID: 2, WindowID: intp(20)},
	)

	require.Len(t, cmds, 2)
	assert.Equal(t, actionPauseTab, cmds[1].Action)
	assert.Equal(t, 1, cmds[1].TabID)
}

func TestRefocusSameWindowIsQuiet(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeWindowFocused, TabID: 1, WindowID: intp(10)},
	)

	require.Len(t, cmds, 1)
}

func TestClosedTabIsForgotten(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeTabClosed, TabID: 1},
		coord.Message{Type: coord.TypeTabActivated, TabID: 2, WindowID: intp(10)},
	)

	require.Len(t, cmds, 1, "a closed tab must never be paused")
}

func TestMessagesAreForwardedToCoordination(t *testing.T) {
	fwd := &recordingForwarder{}
	runSession(t, fwd,
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeBrowserLostFocus},
	)

	require.Len(t, fwd.sent, 2)
	assert.Equal(t, coord.TypeMediaStateChanged, fwd.sent[0].Type)
	assert.Equal(t, coord.TypeBrowserLostFocus, fwd.sent[1].Type)
}

func TestUnknownMessageTypeIsNotForwarded(t *testing.T) {
	fwd := &recordingForwarder{}
	runSession(t, fwd, coord.Message{Type: "telemetry"})
	assert.Empty(t, fwd.sent)
}

func TestForwardingFailureKeepsLocalControlWorking(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("not connected")}
	cmds := runSession(t, fwd,
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeMediaStateChanged, TabID: 1, Playing: boolp(true), WindowID: intp(10)},
		coord.Message{Type: coord.TypeTabActivated, TabID: 2, WindowID: intp(10)},
	)

	require.Len(t, cmds, 2)
	assert.Equal(t, actionPauseTab, cmds[1].Action)
}

func TestTabStatesSnapshotSeedsRegistry(t *testing.T) {
	cmds := runSession(t, nil,
		coord.Message{Type: coord.TypeTabStates, Tabs: []coord.TabState{
			{TabID: 1, Playing: true, WindowID: intp(10)},
		}},
		coord.Message{Type: coord.TypeTabActivated, TabID: 1, WindowID: intp(10)},
		coord.Message{Type: coord.TypeTabActivated, TabID: 2, WindowID: intp(10)},
	)

	require.Len(t, cmds, 2)
	assert.Equal(t, actionPauseTab, cmds[1].Action)
	assert.Equal(t, 1, cmds[1].TabID)
}

func TestApplyDirectiveRelaysToExtension(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(zap.NewNop(), &bytes.Buffer{}, &out, nil)

	s.ApplyDirective(coord.Directive{
		Action:      coord.ActionBrowserWindowFocused,
		WindowTitle: "Music - YouTube",
	})

	cmds := decodeOutput(t, &out)
	require.Len(t, cmds, 1)
	assert.Equal(t, coord.ActionBrowserWindowFocused, cmds[0].Action)
	assert.Equal(t, "Music - YouTube", cmds[0].WindowTitle)
}
