package service

import (
	"github.com/okian/racearchive/internal/adapters/repository"
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/resolver"
	"github.com/okian/racearchive/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the archive store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLedger sets the disambiguation ledger.
func WithLedger(l Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithResolver sets the resolver used by Match.
func WithResolver(r *resolver.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithMinter sets the minter used for review rulings.
func WithMinter(m *minting.Minter) Option {
	return func(s *Service) {
		if m != nil {
			s.minter = m
		}
	}
}

// WithMetricsTextfile writes metrics to path after each command.
func WithMetricsTextfile(path string) Option {
	return func(s *Service) {
		s.metricsTextfile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
