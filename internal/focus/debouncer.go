// Package focus turns raw foreground-change signals into settled focus
// events. The sources are platform adapters around window-system queries;
// the Debouncer is the single-timer state machine that coalesces signal
// bursts.
package focus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// Debouncer coalesces bursts of focus signals into at most one settled
// event per quiet period. Submissions record a pending value and restart a
// single timer; when the timer fires without having been reset, the last
// pending value is emitted, unless it matches the previously emitted
// owner+window pair. The pair comparison (not just owner) is what lets a
// same-process switch between two windows still settle as an event.
type Debouncer struct {
	logger   *zap.Logger
	interval time.Duration
	settled  chan domain.FocusChangeEvent

	mu         sync.Mutex
	timer      *time.Timer
	pending    *domain.FocusSignal
	lastOwner  domain.OwnerID
	lastWindow uintptr
	stopped    bool

	lastDropWarning time.Time
}

// NewDebouncer creates a debouncer with the given settle interval
func NewDebouncer(logger *zap.Logger, interval time.Duration) *Debouncer {
	return &Debouncer{
		logger:    logger,
		interval:  interval,
		settled:   make(chan domain.FocusChangeEvent, 16),
		lastOwner: domain.NoOwner,
	}
}

// Submit records a pending signal and (re)starts the settle timer.
// Safe to call from any goroutine; never blocks.
func (d *Debouncer) Submit(sig domain.FocusSignal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = &sig
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
	} else {
		d.timer.Reset(d.interval)
	}
}

// Settled returns the channel of settled focus change events
func (d *Debouncer) Settled() <-chan domain.FocusChangeEvent {
	return d.settled
}

// Stop cancels any pending timer and discards the pending value.
// The settled channel stays open; no further events are emitted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

// fire runs on the timer goroutine when the settle interval elapses
func (d *Debouncer) fire() {
	d.mu.Lock()

	sig := d.pending
	d.pending = nil

	if sig == nil || d.stopped {
		d.mu.Unlock()
		return
	}

	if sig.Owner == d.lastOwner && sig.Window == d.lastWindow {
		// Burst ended where it started; nothing changed.
		d.mu.Unlock()
		return
	}

	ev := domain.FocusChangeEvent{
		Previous: d.lastOwner,
		Current:  sig.Owner,
		Window:   sig.Window,
		Name:     sig.Name,
		Title:    sig.Title,
		At:       sig.At,
	}
	d.lastOwner = sig.Owner
	d.lastWindow = sig.Window
	d.mu.Unlock()

	select {
	case d.settled <- ev:
	default:
		d.logDropWarning()
	}
}

// logDropWarning rate-limits the "consumer is slow" warning so rapid focus
// scrubbing cannot spam the log
func (d *Debouncer) logDropWarning() {
	d.mu.Lock()
	defer d.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(d.lastDropWarning) >= warningInterval {
		d.logger.Warn("Settled events channel full, dropping focus change (consumer may be slow)")
		d.lastDropWarning = now
	}
}
