// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/repcoach/internal/domain/rules"
)

// Completion store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FrameQueueSize bounds each session's frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// DedupeSize caps the remembered frame keys.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxSessions caps concurrently open sessions. Zero means unlimited.
	MaxSessions int `koanf:"max_sessions"`

	// CompletionStore is memory or sqlite.
	CompletionStore string `koanf:"completion_store"`
	SQLitePath      string `koanf:"sqlite_path"`

	// MinVisibility is the landmark confidence floor.
	MinVisibility float64 `koanf:"min_visibility"`

	// Joint angle thresholds in degrees.
	SquatContractedDeg float64 `koanf:"squat_contracted_deg"`
	SquatExtendedDeg   float64 `koanf:"squat_extended_deg"`
	SquatDepthCueDeg   float64 `koanf:"squat_depth_cue_deg"`
	SquatPostureOffset float64 `koanf:"squat_posture_offset"`
	PressContractedDeg float64 `koanf:"press_contracted_deg"`
	PressExtendedDeg   float64 `koanf:"press_extended_deg"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		FrameQueueSize:     256,
		DedupeSize:         50_000,
		MaxSessions:        1_000,
		CompletionStore:    StoreMemory,
		SQLitePath:         "data/completions.db",
		MinVisibility:      rules.DefaultMinVisibility,
		SquatContractedDeg: rules.DefaultSquatContracted,
		SquatExtendedDeg:   rules.DefaultSquatExtended,
		SquatDepthCueDeg:   rules.DefaultSquatDepthCue,
		SquatPostureOffset: rules.DefaultPostureOffset,
		PressContractedDeg: rules.DefaultPressContracted,
		PressExtendedDeg:   rules.DefaultPressExtended,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FrameQueueSize <= 0:
		return fmt.Errorf("%w: frame_queue_size must be positive", ErrInvalidConfig)
	case c.MaxSessions < 0:
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalidConfig)
	case c.MinVisibility < 0 || c.MinVisibility > 1:
		return fmt.Errorf("%w: min_visibility %v outside [0,1]", ErrInvalidConfig, c.MinVisibility)
	case c.SquatContractedDeg >= c.SquatExtendedDeg:
		return fmt.Errorf("%w: squat thresholds inverted (%v >= %v)", ErrInvalidConfig, c.SquatContractedDeg, c.SquatExtendedDeg)
	case c.PressContractedDeg >= c.PressExtendedDeg:
		return fmt.Errorf("%w: press thresholds inverted (%v >= %v)", ErrInvalidConfig, c.PressContractedDeg, c.PressExtendedDeg)
	}
	switch c.CompletionStore {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown completion_store %q", ErrInvalidConfig, c.CompletionStore)
	}
	return nil
}

// RuleOptions maps the thresholds onto rule registry options.
func (c *Config) RuleOptions() []rules.Option {
	return []rules.Option{
		rules.WithSquatThresholds(c.SquatContractedDeg, c.SquatExtendedDeg, c.SquatDepthCueDeg),
		rules.WithPostureOffset(c.SquatPostureOffset),
		rules.WithPressThresholds(c.PressContractedDeg, c.PressExtendedDeg),
		rules.WithMinVisibility(c.MinVisibility),
	}
}
