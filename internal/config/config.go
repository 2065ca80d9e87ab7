package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/domain"
)

const (
	defaultAudibilityThreshold = 0.01
	defaultDebounceMs          = 200
	defaultPauseCooldownMs     = 0
	defaultGraceMs             = 3000
	defaultCoordinationPort    = 43117
)

// AppConfig holds the resolved application configuration. Values are read
// once at construction; all getters are safe for concurrent use.
type AppConfig struct {
	logger *zap.Logger

	threshold float64
	debounce  time.Duration
	cooldown  time.Duration
	grace     time.Duration
	mode      domain.ListMode

	include   []string
	exclude   []string
	never     map[string]struct{}
	browsers  map[string]struct{}
	hints     map[string]string
	coordAddr string
}

// defaultBrowsers are the process names treated as browsers unless the
// browser_processes option overrides the list.
var defaultBrowsers = []string{
	"chrome", "chromium", "msedge", "firefox", "brave", "opera", "vivaldi",
}

// New loads configuration from $XDG_CONFIG_HOME/hushd/config.yaml (then the
// working directory) with HUSHD_* environment overrides, applying defaults
// for anything unset.
func New(logger *zap.Logger) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "hushd"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("HUSHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v, logger)
}

func fromViper(v *viper.Viper, logger *zap.Logger) (*AppConfig, error) {
	v.SetDefault("audibility_threshold", defaultAudibilityThreshold)
	v.SetDefault("debounce_ms", defaultDebounceMs)
	v.SetDefault("pause_cooldown_ms", defaultPauseCooldownMs)
	v.SetDefault("list_mode", string(domain.Blacklist))
	v.SetDefault("coordination.port", defaultCoordinationPort)
	v.SetDefault("coordination.grace_ms", defaultGraceMs)

	threshold := v.GetFloat64("audibility_threshold")
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("audibility_threshold %v out of range [0,1]", threshold)
	}

	cooldownMs := v.GetInt("pause_cooldown_ms")
	if cooldownMs < 0 {
		return nil, fmt.Errorf("pause_cooldown_ms must be >= 0, got %d", cooldownMs)
	}

	debounceMs := v.GetInt("debounce_ms")
	if debounceMs <= 0 {
		return nil, fmt.Errorf("debounce_ms must be > 0, got %d", debounceMs)
	}

	var mode domain.ListMode
	switch m := strings.ToLower(v.GetString("list_mode")); m {
	case string(domain.Blacklist):
		mode = domain.Blacklist
	case string(domain.Whitelist):
		mode = domain.Whitelist
	default:
		return nil, fmt.Errorf("list_mode must be %q or %q, got %q", domain.Blacklist, domain.Whitelist, m)
	}

	never := make(map[string]struct{})
	for _, n := range v.GetStringSlice("never_act_list") {
		never[strings.ToLower(n)] = struct{}{}
	}

	v.SetDefault("browser_processes", defaultBrowsers)
	browsers := make(map[string]struct{})
	for _, n := range v.GetStringSlice("browser_processes") {
		browsers[strings.ToLower(n)] = struct{}{}
	}

	hints := make(map[string]string)
	for name, id := range v.GetStringMapString("session_hints") {
		hints[strings.ToLower(name)] = id
	}

	cfg := &AppConfig{
		logger:    logger,
		threshold: threshold,
		debounce:  time.Duration(debounceMs) * time.Millisecond,
		cooldown:  time.Duration(cooldownMs) * time.Millisecond,
		grace:     time.Duration(v.GetInt("coordination.grace_ms")) * time.Millisecond,
		mode:      mode,
		include:   v.GetStringSlice("include_list"),
		exclude:   v.GetStringSlice("exclude_list"),
		never:     never,
		browsers:  browsers,
		hints:     hints,
		coordAddr: net.JoinHostPort("127.0.0.1", strconv.Itoa(v.GetInt("coordination.port"))),
	}

	logger.Info("Configuration loaded",
		zap.Float64("audibilityThreshold", cfg.threshold),
		zap.Duration("debounce", cfg.debounce),
		zap.Duration("pauseCooldown", cfg.cooldown),
		zap.Duration("graceWindow", cfg.grace),
		zap.String("listMode", string(cfg.mode)),
		zap.String("coordinationAddr", cfg.coordAddr),
		zap.Int("neverActEntries", len(cfg.never)))

	return cfg, nil
}

// AudibilityThreshold returns the configured peak threshold
func (c *AppConfig) AudibilityThreshold() float64 { return c.threshold }

// DebounceInterval returns the focus-change settle window
func (c *AppConfig) DebounceInterval() time.Duration { return c.debounce }

// PauseCooldown returns the post-settle quiet window; zero disables it
func (c *AppConfig) PauseCooldown() time.Duration { return c.cooldown }

// GraceWindow returns the coordination "was just playing" interval
func (c *AppConfig) GraceWindow() time.Duration { return c.grace }

// Mode returns the configured policy list mode
func (c *AppConfig) Mode() domain.ListMode { return c.mode }

// IncludeList returns the whitelist process names
func (c *AppConfig) IncludeList() []string { return c.include }

// ExcludeList returns the blacklist process names
func (c *AppConfig) ExcludeList() []string { return c.exclude }

// NeverAct reports whether a process name is on the never-act list
func (c *AppConfig) NeverAct(name string) bool {
	_, ok := c.never[strings.ToLower(name)]
	return ok
}

// BrowserProcess reports whether a process name is a known browser
func (c *AppConfig) BrowserProcess(name string) bool {
	_, ok := c.browsers[strings.ToLower(name)]
	return ok
}

// SessionHint returns the configured session identifier for an owner name
func (c *AppConfig) SessionHint(name string) (string, bool) {
	id, ok := c.hints[strings.ToLower(name)]
	return id, ok
}

// CoordinationAddr returns the loopback address of the coordination server
func (c *AppConfig) CoordinationAddr() string { return c.coordAddr }
