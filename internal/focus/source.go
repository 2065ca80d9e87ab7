package focus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// Querier answers "what owns the foreground window right now". Platform
// adapters implement it over the local window system.
type Querier interface {
	// Foreground returns the current foreground signal; false when the
	// query failed or no window is focused
	Foreground() (domain.FocusSignal, bool)

	// Close releases the underlying window-system connection
	Close() error
}

// PollingSource is a ChangeSource that polls a Querier at a fixed cadence
// and emits a signal whenever the foreground owner or window changed since
// the previous poll. Duplicate suppression here is only a cheap pre-filter;
// the Debouncer remains the component that defines settle semantics.
type PollingSource struct {
	logger *zap.Logger
	poll   time.Duration
	events chan domain.FocusSignal

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	querier Querier
	wg      sync.WaitGroup
}

// NewPollingSource creates a source polling at the given interval
func NewPollingSource(logger *zap.Logger, poll time.Duration) *PollingSource {
	return &PollingSource{
		logger: logger,
		poll:   poll,
		events: make(chan domain.FocusSignal, 32),
	}
}

// Start connects to the window system and begins polling. Returns an error
// when the platform has no usable foreground query; the caller may continue
// in a degraded mode without focus tracking.
func (s *PollingSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	q, err := newQuerier(s.logger)
	if err != nil {
		return fmt.Errorf("foreground querier unavailable: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.querier = q
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("Foreground polling started", zap.Duration("interval", s.poll))
	return nil
}

// Stop cancels the poll loop and closes the window-system connection
func (s *PollingSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	q := s.querier
	s.querier = nil
	s.mu.Unlock()

	s.wg.Wait()

	if q != nil {
		if err := q.Close(); err != nil {
			s.logger.Warn("Failed to close foreground querier", zap.Error(err))
		}
	}

	s.logger.Info("Foreground polling stopped")
	return nil
}

// Events returns the raw focus signal channel
func (s *PollingSource) Events() <-chan domain.FocusSignal {
	return s.events
}

func (s *PollingSource) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var (
		lastOwner  = domain.NoOwner
		lastWindow uintptr
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			q := s.querier
			s.mu.Unlock()
			if q == nil {
				return
			}

			sig, ok := q.Foreground()
			if !ok {
				continue
			}
			if sig.Owner == lastOwner && sig.Window == lastWindow {
				continue
			}
			lastOwner = sig.Owner
			lastWindow = sig.Window

			select {
			case s.events <- sig:
			default:
				// Consumer lagging; newer polls supersede this one anyway.
			}
		}
	}
}
