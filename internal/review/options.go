package review

import (
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithMinter sets the minter used for new-runner rulings.
func WithMinter(m *minting.Minter) Option {
	return func(s *Session) {
		if m != nil {
			s.minter = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
