package config_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/racearchive/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the documented defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			convey.So(cfg.AutoAssignThreshold, convey.ShouldEqual, 0.92)
			convey.So(cfg.WarningThreshold, convey.ShouldEqual, 0.85)
			convey.So(cfg.DuplicateThreshold, convey.ShouldEqual, 0.80)
			convey.So(cfg.MaxTimeVariance, convey.ShouldEqual, 0.40)
			convey.So(cfg.RecentAppearances, convey.ShouldEqual, 5)
			convey.So(cfg.RecentYears, convey.ShouldEqual, 5)
			convey.So(cfg.ClubTokenLength, convey.ShouldEqual, 10)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When resolving paths", func() {
			cfg.DataDir = "archive"
			cfg.LedgerDir = "/srv/ledger"
			cfg.Resolve()

			convey.Convey("Then empty paths derive from the data directory", func() {
				convey.So(cfg.ResultsDir, convey.ShouldEqual, filepath.Join("archive", "results"))
				convey.So(cfg.WarningsDir, convey.ShouldEqual, filepath.Join("archive", "warnings"))
				convey.So(cfg.RunnerDBPath, convey.ShouldEqual, filepath.Join("archive", "runners.json"))
				convey.So(cfg.NameChangesPath, convey.ShouldEqual, filepath.Join("archive", "name_changes.json"))
				convey.So(cfg.LedgerDir, convey.ShouldEqual, "/srv/ledger")
			})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"warning above auto", func(c *config.Config) { c.WarningThreshold = 0.95 }},
		{"duplicate above warning", func(c *config.Config) { c.DuplicateThreshold = 0.9 }},
		{"auto above one", func(c *config.Config) { c.AutoAssignThreshold = 1.5 }},
		{"zero duplicate", func(c *config.Config) { c.DuplicateThreshold = 0 }},
		{"zero variance", func(c *config.Config) { c.MaxTimeVariance = 0 }},
		{"zero window", func(c *config.Config) { c.RecentYears = 0 }},
		{"zero club token", func(c *config.Config) { c.ClubTokenLength = 0 }},
		{"empty data dir", func(c *config.Config) { c.DataDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
