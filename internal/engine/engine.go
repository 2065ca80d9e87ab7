// Package engine contains the orchestrator: it consumes settled focus
// changes and runs the resume/pause pipeline over the audible owners.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/audio"
	"github.com/hushd/hushd/internal/domain"
	"github.com/hushd/hushd/internal/focus"
	"github.com/hushd/hushd/internal/media"
	"github.com/hushd/hushd/internal/policy"
	"github.com/hushd/hushd/internal/state"
)

// cooldownNap caps how long a cycle sleeps between cooldown deadline
// checks, so deadline extensions from newer events are picked up promptly.
const cooldownNap = 50 * time.Millisecond

// SessionResolver maps an owner name onto a controllable media session.
type SessionResolver interface {
	Resolve(ctx context.Context, ownerName string) (media.Resolution, error)
}

// Engine drives the pause/resume pipeline. Each settled focus change runs
// one cycle: resume the newly focused owner if this process paused it,
// then pause whatever the policy selects from the audible set. Cycles are
// single-flight: an event arriving mid-cycle is dropped, the next settled
// event supersedes it.
type Engine struct {
	logger      *zap.Logger
	cfg         domain.Config
	source      domain.ChangeSource
	debouncer   *focus.Debouncer
	provider    domain.CandidateProvider
	filter      *audio.Filter
	policy      *policy.Engine
	resolver    SessionResolver
	controller  domain.MediaController
	ledger      *state.Ledger
	broadcaster domain.Broadcaster

	busy atomic.Bool
	// deadline is the cooldown deadline in unix nanos, extended by every
	// raw focus signal
	deadline atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine wires the pipeline. broadcaster may be nil to run without
// browser coordination.
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	source domain.ChangeSource,
	provider domain.CandidateProvider,
	filter *audio.Filter,
	policyEngine *policy.Engine,
	resolver SessionResolver,
	controller domain.MediaController,
	ledger *state.Ledger,
	broadcaster domain.Broadcaster,
) *Engine {
	return &Engine{
		logger:      logger,
		cfg:         cfg,
		source:      source,
		debouncer:   focus.NewDebouncer(logger, cfg.DebounceInterval()),
		provider:    provider,
		filter:      filter,
		policy:      policyEngine,
		resolver:    resolver,
		controller:  controller,
		ledger:      ledger,
		broadcaster: broadcaster,
	}
}

// Start launches the focus source and the processing loops.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	if err := e.source.Start(runCtx); err != nil {
		cancel()
		return err
	}

	e.wg.Add(2)
	go e.pumpLoop(runCtx)
	go e.settleLoop(runCtx)

	e.logger.Info("Engine started",
		zap.Duration("debounce", e.cfg.DebounceInterval()),
		zap.Duration("cooldown", e.cfg.PauseCooldown()))
	return nil
}

// Stop halts the source, cancels any pending debounce, and waits for an
// in-flight cycle to finish.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.source.Stop(ctx); err != nil {
		e.logger.Warn("Focus source stop failed", zap.Error(err))
	}
	e.debouncer.Stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.logger.Info("Engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pumpLoop feeds raw focus signals into the debouncer and pushes out the
// cooldown deadline on every signal.
func (e *Engine) pumpLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-e.source.Events():
			if !ok {
				return
			}
			e.extendCooldown()
			e.debouncer.Submit(sig)
		}
	}
}

func (e *Engine) extendCooldown() {
	cooldown := e.cfg.PauseCooldown()
	if cooldown <= 0 {
		return
	}
	e.deadline.Store(time.Now().Add(cooldown).UnixNano())
}

func (e *Engine) settleLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.debouncer.Settled():
			if !ok {
				return
			}
			if !e.busy.CompareAndSwap(false, true) {
				e.logger.Debug("Cycle in flight, dropping settled event",
					zap.Int("owner", int(ev.Current)))
				continue
			}
			e.wg.Add(1)
			go func(ev domain.FocusChangeEvent) {
				defer e.wg.Done()
				defer e.busy.Store(false)
				e.runCycle(ctx, ev)
			}(ev)
		}
	}
}

// waitCooldown sleeps until the shared deadline passes without further
// extension. Returns false when the context is cancelled first.
func (e *Engine) waitCooldown(ctx context.Context) bool {
	for {
		deadline := e.deadline.Load()
		if deadline == 0 {
			return true
		}
		remaining := time.Until(time.Unix(0, deadline))
		if remaining <= 0 {
			return true
		}
		if remaining > cooldownNap {
			remaining = cooldownNap
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, ev domain.FocusChangeEvent) {
	if !e.waitCooldown(ctx) {
		return
	}

	e.logger.Debug("Processing focus change",
		zap.Int("previous", int(ev.Previous)),
		zap.Int("current", int(ev.Current)),
		zap.String("name", ev.Name))

	e.resumeFocused(ctx, ev.Current)

	if e.broadcaster != nil && ev.Name != "" && e.cfg.BrowserProcess(ev.Name) {
		e.broadcaster.NotifyBrowserFocused(ev.Title, ev.Window)
	}

	snapshot, err := e.provider.Snapshot(ctx)
	if err != nil {
		// Transient enumeration failure: skip this cycle, the next
		// settled event retries.
		e.logger.Warn("Audio snapshot failed, skipping cycle", zap.Error(err))
		return
	}

	audible := e.filter.Audible(snapshot)
	decision := e.policy.Evaluate(ev.Current, ev.Name, audible)

	names := make(map[domain.OwnerID]string, len(audible))
	for _, owner := range audible {
		names[owner.ID] = owner.Name
	}
	for _, owner := range decision.ToPause {
		e.pauseOwner(ctx, owner, names[owner])
	}

	e.ledger.Sweep()
}

// resumeFocused resumes the newly focused owner if this process paused it.
func (e *Engine) resumeFocused(ctx context.Context, owner domain.OwnerID) {
	entry, ok := e.ledger.TryGetPaused(owner)
	if !ok {
		return
	}

	switch e.controller.TryPlay(ctx, entry.SessionKey) {
	case domain.ControlSuccess:
		e.ledger.Clear(owner)
		e.logger.Info("Resumed focused owner",
			zap.Int("owner", int(owner)),
			zap.String("session", entry.SessionKey))
	case domain.ControlNotSupported:
		// The session will never resume through us; drop the entry.
		e.ledger.Clear(owner)
		e.logger.Warn("Session does not support resume",
			zap.String("session", entry.SessionKey))
	case domain.ControlFailed:
		// Keep the entry, the next focus on this owner retries.
		e.logger.Warn("Resume failed",
			zap.Int("owner", int(owner)),
			zap.String("session", entry.SessionKey))
	}
}

// pauseOwner resolves an owner to a session and pauses it. Failures are
// isolated per owner.
func (e *Engine) pauseOwner(ctx context.Context, owner domain.OwnerID, name string) {
	if name == "" {
		e.logger.Debug("Skipping unnamed audible owner", zap.Int("owner", int(owner)))
		return
	}
	if e.cfg.NeverAct(name) {
		e.logger.Debug("Owner is on the never-act list", zap.String("name", name))
		return
	}

	res, err := e.resolver.Resolve(ctx, name)
	if err != nil {
		e.logger.Warn("Session resolution failed", zap.String("name", name), zap.Error(err))
		return
	}
	switch res.Status {
	case media.StatusNotFound:
		e.logger.Debug("No controllable session", zap.String("name", name))
		return
	case media.StatusAmbiguous:
		e.logger.Info("Ambiguous session resolution, not acting", zap.String("name", name))
		return
	}

	switch e.controller.TryPause(ctx, res.Session.ID) {
	case domain.ControlSuccess:
		e.ledger.MarkPaused(owner, "pause", res.Session.ID)
		e.logger.Info("Paused background owner",
			zap.Int("owner", int(owner)),
			zap.String("name", name),
			zap.String("session", res.Session.ID))
	case domain.ControlNotSupported:
		e.logger.Debug("Session does not support pause", zap.String("session", res.Session.ID))
	case domain.ControlFailed:
		e.logger.Warn("Pause failed",
			zap.String("name", name),
			zap.String("session", res.Session.ID))
	}
}
