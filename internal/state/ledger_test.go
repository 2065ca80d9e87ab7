package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// fakeEpochs simulates a process table keyed by owner id
type fakeEpochs map[domain.OwnerID]int64

func (f fakeEpochs) epoch(owner domain.OwnerID) (int64, bool) {
	e, ok := f[owner]
	return e, ok
}

func TestMarkAndGet(t *testing.T) {
	procs := fakeEpochs{42: 1000}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(42, "pause", "org.mpris.MediaPlayer2.spotify")

	entry, ok := l.TryGetPaused(42)
	require.True(t, ok)
	assert.Equal(t, domain.OwnerID(42), entry.Owner)
	assert.Equal(t, "pause", entry.Method)
	assert.Equal(t, "org.mpris.MediaPlayer2.spotify", entry.SessionKey)
	assert.Equal(t, int64(1000), entry.Epoch)
	assert.False(t, entry.PausedAt.IsZero())
}

func TestGetAbsentOwner(t *testing.T) {
	l := NewLedger(zap.NewNop(), fakeEpochs{}.epoch)

	_, ok := l.TryGetPaused(42)
	assert.False(t, ok)
}

func TestMarkSkipsVanishedOwner(t *testing.T) {
	l := NewLedger(zap.NewNop(), fakeEpochs{}.epoch)

	l.MarkPaused(42, "pause", "s")
	assert.Zero(t, l.Len())
}

func TestRecycledOwnerIsNotResumed(t *testing.T) {
	procs := fakeEpochs{42: 1000}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(42, "pause", "s")

	// The process exits and the id is recycled by an unrelated process.
	procs[42] = 2000

	_, ok := l.TryGetPaused(42)
	assert.False(t, ok, "a recycled owner id must not match the old entry")
	assert.Zero(t, l.Len(), "the stale entry must be dropped")
}

func TestDeadOwnerIsDropped(t *testing.T) {
	procs := fakeEpochs{42: 1000}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(42, "pause", "s")
	delete(procs, 42)

	_, ok := l.TryGetPaused(42)
	assert.False(t, ok)
	assert.Zero(t, l.Len())
}

func TestClearIsIdempotent(t *testing.T) {
	procs := fakeEpochs{42: 1000}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(42, "pause", "s")
	l.Clear(42)
	l.Clear(42)

	_, ok := l.TryGetPaused(42)
	assert.False(t, ok)
}

func TestRemarkOverwrites(t *testing.T) {
	procs := fakeEpochs{42: 1000}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(42, "pause", "first")
	l.MarkPaused(42, "pause", "second")

	entry, ok := l.TryGetPaused(42)
	require.True(t, ok)
	assert.Equal(t, "second", entry.SessionKey)
	assert.Equal(t, 1, l.Len())
}

func TestSweep(t *testing.T) {
	procs := fakeEpochs{1: 100, 2: 200, 3: 300}
	l := NewLedger(zap.NewNop(), procs.epoch)

	l.MarkPaused(1, "pause", "a")
	l.MarkPaused(2, "pause", "b")
	l.MarkPaused(3, "pause", "c")

	delete(procs, 1) // exited
	procs[2] = 999   // recycled

	removed := l.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, l.Len())

	_, ok := l.TryGetPaused(3)
	assert.True(t, ok, "live entry must survive the sweep")
}
