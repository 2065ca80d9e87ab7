package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

type listConfig struct {
	mode    domain.ListMode
	include []string
	exclude []string
}

func (c listConfig) Mode() domain.ListMode { return c.mode }
func (c listConfig) IncludeList() []string { return c.include }
func (c listConfig) ExcludeList() []string { return c.exclude }

func audible(id domain.OwnerID, name string) domain.AudibleOwner {
	return domain.AudibleOwner{ID: id, Name: name}
}

func TestEvaluate(t *testing.T) {
	const self = domain.OwnerID(99)

	tests := []struct {
		name    string
		cfg     listConfig
		focused domain.OwnerID
		fName   string
		audible []domain.AudibleOwner
		want    []domain.OwnerID
	}{
		{
			name:    "blacklist pauses everything else",
			cfg:     listConfig{mode: domain.Blacklist},
			focused: 10,
			fName:   "editor",
			audible: []domain.AudibleOwner{audible(20, "spotify"), audible(30, "vlc")},
			want:    []domain.OwnerID{20, 30},
		},
		{
			name:    "focused owner is never paused",
			cfg:     listConfig{mode: domain.Blacklist},
			focused: 20,
			fName:   "spotify",
			audible: []domain.AudibleOwner{audible(20, "spotify"), audible(30, "vlc")},
			want:    []domain.OwnerID{30},
		},
		{
			name:    "own process is never paused",
			cfg:     listConfig{mode: domain.Blacklist},
			focused: 10,
			fName:   "editor",
			audible: []domain.AudibleOwner{audible(self, "hushd"), audible(30, "vlc")},
			want:    []domain.OwnerID{30},
		},
		{
			name:    "sibling processes of the focused app survive",
			cfg:     listConfig{mode: domain.Blacklist},
			focused: 20,
			fName:   "Chrome",
			audible: []domain.AudibleOwner{audible(21, "chrome"), audible(30, "vlc")},
			want:    []domain.OwnerID{30},
		},
		{
			name:    "blacklist entries are exempt",
			cfg:     listConfig{mode: domain.Blacklist, exclude: []string{"VLC"}},
			focused: 10,
			fName:   "editor",
			audible: []domain.AudibleOwner{audible(20, "spotify"), audible(30, "vlc")},
			want:    []domain.OwnerID{20},
		},
		{
			name:    "whitelist pauses only listed names",
			cfg:     listConfig{mode: domain.Whitelist, include: []string{"spotify"}},
			focused: 10,
			fName:   "editor",
			audible: []domain.AudibleOwner{audible(20, "spotify"), audible(30, "vlc")},
			want:    []domain.OwnerID{20},
		},
		{
			name:    "empty whitelist pauses nothing",
			cfg:     listConfig{mode: domain.Whitelist},
			focused: 10,
			fName:   "editor",
			audible: []domain.AudibleOwner{audible(20, "spotify"), audible(30, "vlc")},
			want:    nil,
		},
		{
			name:    "no audible owners",
			cfg:     listConfig{mode: domain.Blacklist},
			focused: 10,
			fName:   "editor",
			audible: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(zap.NewNop(), tt.cfg, self)
			got := e.Evaluate(tt.focused, tt.fName, tt.audible)
			assert.Equal(t, tt.want, got.ToPause)
		})
	}
}

func TestEvaluateNeverSelectsFocusedOrSelf(t *testing.T) {
	const self = domain.OwnerID(99)
	e := NewEngine(zap.NewNop(), listConfig{mode: domain.Blacklist}, self)

	audibleSet := []domain.AudibleOwner{
		audible(10, "a"), audible(20, "b"), audible(self, "hushd"),
	}
	for _, focused := range []domain.OwnerID{10, 20, self, domain.NoOwner} {
		got := e.Evaluate(focused, "", audibleSet)
		assert.NotContains(t, got.ToPause, focused)
		assert.NotContains(t, got.ToPause, self)
	}
}
