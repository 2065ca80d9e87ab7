// Package state tracks which owners this daemon paused, so only those are
// ever resumed. Entries are fenced by process start time: a recycled owner
// id never inherits a stale entry.
package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// EpochFunc reports a stable start-time epoch for an owner. The second
// return is false when the owner no longer exists.
type EpochFunc func(domain.OwnerID) (int64, bool)

// Entry records one pause performed by this daemon.
type Entry struct {
	Owner      domain.OwnerID
	Method     string
	SessionKey string
	PausedAt   time.Time
	Epoch      int64
}

// Ledger is a concurrency-safe record of daemon-initiated pauses.
type Ledger struct {
	logger *zap.Logger
	epoch  EpochFunc

	mu      sync.Mutex
	entries map[domain.OwnerID]Entry
}

// NewLedger creates an empty ledger using epoch to fence entries.
func NewLedger(logger *zap.Logger, epoch EpochFunc) *Ledger {
	return &Ledger{
		logger:  logger,
		epoch:   epoch,
		entries: make(map[domain.OwnerID]Entry),
	}
}

// MarkPaused records that the daemon paused owner via method. The entry
// captures the owner's current epoch; if the owner is already gone the
// entry is not recorded. Re-marking an owner overwrites the old entry.
func (l *Ledger) MarkPaused(owner domain.OwnerID, method, sessionKey string) {
	epoch, alive := l.epoch(owner)
	if !alive {
		l.logger.Debug("Not recording pause for vanished owner", zap.Int("owner", int(owner)))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[owner] = Entry{
		Owner:      owner,
		Method:     method,
		SessionKey: sessionKey,
		PausedAt:   time.Now(),
		Epoch:      epoch,
	}
}

// TryGetPaused returns the entry for owner if one exists and still refers
// to the same process incarnation. A stale or dead entry is removed and
// reported as absent.
func (l *Ledger) TryGetPaused(owner domain.OwnerID) (Entry, bool) {
	l.mu.Lock()
	entry, ok := l.entries[owner]
	l.mu.Unlock()
	if !ok {
		return Entry{}, false
	}

	epoch, alive := l.epoch(owner)
	if !alive || epoch != entry.Epoch {
		l.logger.Debug("Dropping stale pause entry",
			zap.Int("owner", int(owner)),
			zap.Bool("alive", alive))
		l.Clear(owner)
		return Entry{}, false
	}
	return entry, true
}

// Clear removes the entry for owner. Clearing an absent owner is a no-op.
func (l *Ledger) Clear(owner domain.OwnerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, owner)
}

// Sweep drops entries whose owner has exited or been recycled. Returns the
// number of entries removed.
func (l *Ledger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for owner, entry := range l.entries {
		epoch, alive := l.epoch(owner)
		if alive && epoch == entry.Epoch {
			continue
		}
		delete(l.entries, owner)
		removed++
	}

	if removed > 0 {
		l.logger.Debug("Swept stale pause entries", zap.Int("removed", removed))
	}
	return removed
}

// Len reports the number of live entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
