// Package config defines archive configuration and its loading hooks.
//
// Conventions:
// - Keys are flat snake_case so they map one-to-one onto env variables.
// - Paths left empty are derived from DataDir by Resolve.
package config

import (
	"context"
	"fmt"
	"path/filepath"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir is the archive root. Other paths default beneath it.
	DataDir         string `koanf:"data_dir"`
	ResultsDir      string `koanf:"results_dir"`
	LedgerDir       string `koanf:"ledger_dir"`
	WarningsDir     string `koanf:"warnings_dir"`
	RunnerDBPath    string `koanf:"runner_db_path"`
	NameChangesPath string `koanf:"name_changes_path"`

	// AutoAssignThreshold is the minimum similarity accepted without review.
	AutoAssignThreshold float64 `koanf:"auto_assign_threshold"`
	// WarningThreshold is the minimum similarity reported for review.
	WarningThreshold float64 `koanf:"warning_threshold"`
	// DuplicateThreshold flags same-year name collisions.
	DuplicateThreshold float64 `koanf:"duplicate_threshold"`
	// MaxTimeVariance is the largest relative finish-time gap for a match.
	MaxTimeVariance float64 `koanf:"max_time_variance"`

	// RecentAppearances and RecentYears bound the history used by the time gate.
	RecentAppearances int `koanf:"recent_appearances"`
	RecentYears       int `koanf:"recent_years"`

	// ClubTokenLength truncates the club disambiguator of minted IDs.
	ClubTokenLength int `koanf:"club_token_length"`

	// MetricsEnabled turns metric collection on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsTextfile is written after each run when set.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		DataDir:             "data",
		AutoAssignThreshold: 0.92,
		WarningThreshold:    0.85,
		DuplicateThreshold:  0.80,
		MaxTimeVariance:     0.40,
		RecentAppearances:   5,
		RecentYears:         5,
		ClubTokenLength:     10,
		MetricsEnabled:      true,
	}
}

// Resolve fills empty paths from DataDir.
func (c *Config) Resolve() {
	if c.ResultsDir == "" {
		c.ResultsDir = filepath.Join(c.DataDir, "results")
	}
	if c.LedgerDir == "" {
		c.LedgerDir = filepath.Join(c.DataDir, "disambiguation")
	}
	if c.WarningsDir == "" {
		c.WarningsDir = filepath.Join(c.DataDir, "warnings")
	}
	if c.RunnerDBPath == "" {
		c.RunnerDBPath = filepath.Join(c.DataDir, "runners.json")
	}
	if c.NameChangesPath == "" {
		c.NameChangesPath = filepath.Join(c.DataDir, "name_changes.json")
	}
}

// Validate checks thresholds and window sizes.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.DuplicateThreshold <= 0:
		return fmt.Errorf("%w: duplicate_threshold must be positive", ErrInvalidConfig)
	case c.DuplicateThreshold > c.WarningThreshold:
		return fmt.Errorf("%w: duplicate_threshold %.4g exceeds warning_threshold %.4g", ErrInvalidConfig, c.DuplicateThreshold, c.WarningThreshold)
	case c.WarningThreshold > c.AutoAssignThreshold:
		return fmt.Errorf("%w: warning_threshold %.4g exceeds auto_assign_threshold %.4g", ErrInvalidConfig, c.WarningThreshold, c.AutoAssignThreshold)
	case c.AutoAssignThreshold > 1:
		return fmt.Errorf("%w: auto_assign_threshold must be at most 1", ErrInvalidConfig)
	case c.MaxTimeVariance <= 0:
		return fmt.Errorf("%w: max_time_variance must be positive", ErrInvalidConfig)
	case c.RecentAppearances <= 0 || c.RecentYears <= 0:
		return fmt.Errorf("%w: recent_appearances and recent_years must be positive", ErrInvalidConfig)
	case c.ClubTokenLength <= 0:
		return fmt.Errorf("%w: club_token_length must be positive", ErrInvalidConfig)
	}
	return nil
}
