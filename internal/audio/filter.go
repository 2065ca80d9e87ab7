// Package audio reduces raw audio-session candidates to the owners that
// are actually playing something worth reacting to.
package audio

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

// Filter merges per-channel candidates into owner-level audibility.
// An owner is audible when at least one of its candidates is active with a
// peak at or above the threshold; candidates without peak metering (NaN)
// count on activity alone. The loudest peak per owner is kept for logging.
type Filter struct {
	logger    *zap.Logger
	threshold float64
}

// NewFilter creates a filter with the given peak threshold in [0,1]
func NewFilter(logger *zap.Logger, threshold float64) (*Filter, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("peak threshold %v out of range [0,1]", threshold)
	}
	return &Filter{logger: logger, threshold: threshold}, nil
}

// Audible returns the owners considered audible in the given snapshot,
// one entry per owner regardless of how many channels it holds.
func (f *Filter) Audible(candidates []domain.AudibleCandidate) []domain.AudibleOwner {
	byOwner := make(map[domain.OwnerID]domain.AudibleOwner)

	for _, c := range candidates {
		if !c.Active {
			continue
		}
		if !math.IsNaN(c.Peak) && c.Peak < f.threshold {
			continue
		}

		existing, seen := byOwner[c.Owner]
		if !seen {
			byOwner[c.Owner] = domain.AudibleOwner{ID: c.Owner, Name: c.Name, Peak: c.Peak}
			continue
		}
		if math.IsNaN(existing.Peak) || c.Peak > existing.Peak {
			existing.Peak = c.Peak
			if existing.Name == "" {
				existing.Name = c.Name
			}
			byOwner[c.Owner] = existing
		}
	}

	owners := make([]domain.AudibleOwner, 0, len(byOwner))
	for _, o := range byOwner {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ID < owners[j].ID })

	if len(owners) > 0 {
		f.logger.Debug("Audible owners", zap.String("owners", formatOwners(owners)))
	}
	return owners
}

func formatOwners(owners []domain.AudibleOwner) string {
	parts := make([]string, 0, len(owners))
	for _, o := range owners {
		if math.IsNaN(o.Peak) {
			parts = append(parts, fmt.Sprintf("%s(%d)", o.Name, o.ID))
		} else {
			parts = append(parts, fmt.Sprintf("%s(%d) peak=%.3f", o.Name, o.ID, o.Peak))
		}
	}
	return strings.Join(parts, ", ")
}
