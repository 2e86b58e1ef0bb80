package resolver

import (
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/similarity"
	"github.com/okian/racearchive/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithThresholds sets the auto-assign and warning thresholds. Invalid
// combinations are ignored.
func WithThresholds(autoAssign, warning float64) Option {
	return func(r *Resolver) {
		if warning > 0 && autoAssign >= warning && autoAssign <= 1 {
			r.autoAssign = autoAssign
			r.warning = warning
		}
	}
}

// WithDuplicateThreshold sets the minimum similarity for intra-year duplicates.
func WithDuplicateThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.duplicate = t
		}
	}
}

// WithRecentWindow bounds the history used by the time-plausibility gate.
func WithRecentWindow(appearances, years int) Option {
	return func(r *Resolver) {
		if appearances > 0 {
			r.recentAppearances = appearances
		}
		if years > 0 {
			r.recentYears = years
		}
	}
}

// WithScorer sets the scorer used against historical runners.
func WithScorer(s *similarity.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithDuplicateScorer sets the scorer used for same-year duplicate detection.
func WithDuplicateScorer(s *similarity.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.dupScorer = s
		}
	}
}

// WithMinter sets the ID minter.
func WithMinter(m *minting.Minter) Option {
	return func(r *Resolver) {
		if m != nil {
			r.minter = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
