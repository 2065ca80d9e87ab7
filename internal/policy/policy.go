// Package policy decides which audible owners should be paused when the
// foreground moves. The decision is a pure function of the focus target,
// the audible set, and the configured list mode.
package policy

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// Engine applies the pause policy to an audible snapshot.
type Engine struct {
	logger  *zap.Logger
	mode    domain.ListMode
	include map[string]struct{}
	exclude map[string]struct{}
	self    domain.OwnerID
}

// ListConfig is the slice of configuration the policy engine reads.
type ListConfig interface {
	Mode() domain.ListMode
	IncludeList() []string
	ExcludeList() []string
}

// NewEngine builds a policy engine. self is the daemon's own owner id; the
// daemon never pauses itself.
func NewEngine(logger *zap.Logger, cfg ListConfig, self domain.OwnerID) *Engine {
	return &Engine{
		logger:  logger,
		mode:    cfg.Mode(),
		include: toSet(cfg.IncludeList()),
		exclude: toSet(cfg.ExcludeList()),
		self:    self,
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

// Evaluate returns the owners to pause given the current focus target and
// the audible set. The focused owner, the daemon itself, and any owner
// sharing the focused owner's name are never selected: a multi-process
// application keeps playing while any of its processes holds focus.
func (e *Engine) Evaluate(focused domain.OwnerID, focusedName string, audible []domain.AudibleOwner) domain.PolicyDecision {
	focusedName = strings.ToLower(focusedName)

	var decision domain.PolicyDecision
	for _, owner := range audible {
		if owner.ID == focused || owner.ID == e.self {
			continue
		}

		name := strings.ToLower(owner.Name)
		if focusedName != "" && name == focusedName {
			continue
		}
		if !e.selected(name) {
			continue
		}

		decision.ToPause = append(decision.ToPause, owner.ID)
	}

	if len(decision.ToPause) > 0 {
		e.logger.Debug("Policy selected owners to pause",
			zap.Int("count", len(decision.ToPause)),
			zap.String("focusedName", focusedName))
	}
	return decision
}

// selected reports whether the list mode permits pausing this owner name.
// In blacklist mode everything is fair game except the listed names; in
// whitelist mode only the listed names are paused, so an empty whitelist
// pauses nothing.
func (e *Engine) selected(name string) bool {
	switch e.mode {
	case domain.Whitelist:
		_, ok := e.include[name]
		return ok
	default:
		_, ok := e.exclude[name]
		return !ok
	}
}
