// Package service orchestrates the archive commands: matching a year,
// reviewing its warnings, recomputing the runner database and looking up
// a runner.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/racearchive/internal/adapters/ledger"
	"github.com/okian/racearchive/internal/adapters/repository"
	"github.com/okian/racearchive/internal/domain/aggregate"
	"github.com/okian/racearchive/internal/domain/identity"
	"github.com/okian/racearchive/internal/domain/idset"
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/domain/resolver"
	"github.com/okian/racearchive/internal/review"
	"github.com/okian/racearchive/pkg/logger"
	"github.com/okian/racearchive/pkg/metrics"
)

// Command names used in logs and metrics.
const (
	CommandMatch     = "match"
	CommandReview    = "review"
	CommandRecompute = "recompute"
)

const defaultDataDir = "data"

// Ledger stores disambiguation decisions per year.
type Ledger interface {
	Load(ctx context.Context, year int) ([]model.Decision, error)
	Save(ctx context.Context, year int, decisions ...model.Decision) error
}

// Service runs archive commands against a store and a ledger.
type Service struct {
	store    repository.Store
	ledger   Ledger
	resolver *resolver.Resolver
	minter   *minting.Minter

	metricsTextfile string

	logger logger.Logger
}

// New constructs a Service. Without options it works on ./data.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.minter == nil {
		s.minter = minting.New()
	}
	if s.resolver == nil {
		s.resolver = resolver.New(resolver.WithMinter(s.minter), resolver.WithLogger(s.logger))
	}
	if s.store == nil {
		s.store = repository.NewFileStore(defaultDataDir)
	}
	if s.ledger == nil {
		s.ledger = ledger.New(filepath.Join(defaultDataDir, "disambiguation"))
	}
	return s
}

// Match resolves year, rewrites its result file and warnings, and returns
// the outcome. Nothing is written when any input file is malformed.
func (s *Service) Match(ctx context.Context, year int) (out *resolver.Outcome, err error) {
	log, done := s.begin(ctx, CommandMatch, logger.Int("year", year))
	defer func() { done(err) }()

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock)

	return s.match(ctx, log, year)
}

// Review matches year, lets drive rule on the pending warnings through a
// review session, then matches again so the rulings reach the result file.
// Each ruling is saved as soon as it is made, so an error from drive keeps
// the rulings recorded so far.
func (s *Service) Review(ctx context.Context, year int, drive func(*review.Session) error) (out *resolver.Outcome, err error) {
	log, done := s.begin(ctx, CommandReview, logger.Int("year", year))
	defer func() { done(err) }()

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock)

	first, err := s.match(ctx, log, year)
	if err != nil {
		return nil, err
	}

	decisions, err := s.ledger.Load(ctx, year)
	if err != nil {
		return nil, err
	}
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	session := review.NewSession(&first.Report, decisions, first.Entries, knownIDs(all, decisions), s.ledger,
		review.WithMinter(s.minter), review.WithLogger(log))

	driveErr := drive(session)
	stats := session.Stats()
	log.Info(ctx, "review session finished",
		logger.Int("decided", stats.Decided),
		logger.Int("deferred", stats.Deferred),
		logger.Int("skipped", stats.Skipped),
		logger.Int("remaining", session.Remaining()))

	out, err = s.match(ctx, log, year)
	if err != nil {
		return nil, err
	}
	if driveErr != nil {
		return out, fmt.Errorf("review: %w", driveErr)
	}
	return out, nil
}

// match runs one resolution pass. The caller holds the lock.
func (s *Service) match(ctx context.Context, log logger.Logger, year int) (*resolver.Outcome, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	var target []model.ResultEntry
	for _, e := range all {
		if e.Year == year {
			target = append(target, e)
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w %d", ErrNoResults, year)
	}

	decisions, err := s.ledger.Load(ctx, year)
	if err != nil {
		return nil, err
	}
	aliases, err := s.store.LoadNameChanges(ctx)
	if err != nil {
		return nil, err
	}

	idx := identity.Build(all, year)
	log.Debug(ctx, "identity index built", logger.Int("runners", idx.Len()))

	out, err := s.resolver.Resolve(ctx, resolver.Input{
		Year:      year,
		Entries:   target,
		Index:     idx,
		Decisions: decisions,
		Aliases:   aliases,
		IDs:       knownIDs(all, decisions),
	})
	if err != nil {
		return nil, err
	}

	// Warnings are written before the year file; a rerun repairs either.
	if err := s.store.SaveWarnings(ctx, &out.Report); err != nil {
		return nil, err
	}
	if err := s.store.SaveYear(ctx, year, out.Entries); err != nil {
		log.Error(ctx, "year file not rewritten; warnings already reflect this run, rerun match",
			logger.Int("year", year), logger.Error(err))
		return nil, err
	}

	sum := out.Report.Summary
	metrics.UpdatePending(year, sum.Pending)
	fields := []logger.Field{
		logger.Int("total", sum.TotalNewResults),
		logger.Int("already_resolved", sum.AlreadyResolved),
		logger.Int("ledger_applied", sum.LedgerApplied),
		logger.Int("alias_matches", sum.AliasMatches),
		logger.Int("auto_assigned", sum.AutoAssigned),
		logger.Int("new_runners", sum.NewRunners),
		logger.Int("uncertain", sum.UncertainMatches),
		logger.Int("duplicate_pairs", sum.DuplicatePairs),
		logger.Int("pending", sum.Pending),
	}
	if sum.Pending > 0 {
		log.Warn(ctx, "year resolved with pending warnings", fields...)
	} else {
		log.Info(ctx, "year resolved", fields...)
	}
	return out, nil
}

// Recompute rebuilds the runner database from every year file.
func (s *Service) Recompute(ctx context.Context) (db *model.RunnerDatabase, err error) {
	log, done := s.begin(ctx, CommandRecompute)
	defer func() { done(err) }()

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock)

	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	res := aggregate.Recompute(all)
	for _, c := range res.Conflicts {
		log.Warn(ctx, "multiple canonical flags for runner",
			logger.String("runner_id", c.RunnerID),
			logger.String("field", c.Field),
			logger.Int("flags", len(c.Flagged)),
			logger.Int("chosen_year", c.Chosen.Year),
			logger.Int("chosen_position", c.Chosen.Position))
	}
	if err := s.store.SaveRunnerDatabase(ctx, res.Database); err != nil {
		return nil, err
	}

	meta := res.Database.Metadata
	metrics.UpdateRunners(meta.TotalRunners)
	log.Info(ctx, "runner database recomputed",
		logger.Int("runners", meta.TotalRunners),
		logger.Int("participations", meta.TotalParticipations),
		logger.Int("unassigned", meta.UnassignedResults),
		logger.Int("years", len(meta.YearsIncluded)))
	return res.Database, nil
}

// Runner returns one runner's aggregate including race history. The
// aggregate comes from the saved runner database when it lists the runner,
// otherwise it is computed from the year files. History always reflects the
// year files.
func (s *Service) Runner(ctx context.Context, id string) (*model.Runner, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	var mine []model.ResultEntry
	for _, e := range all {
		if e.RunnerID == id {
			mine = append(mine, e)
		}
	}
	fresh, found := aggregate.Recompute(mine).Database.Runners[id]

	db, err := s.store.LoadRunnerDatabase(ctx)
	switch {
	case err == nil:
		if saved, ok := db.Runners[id]; ok {
			if found {
				saved.History = fresh.History
			}
			return saved, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	default:
		s.logger.Debug(ctx, "runner database not found; computing from year files", logger.String("runner_id", id))
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRunnerNotFound, id)
	}
	return fresh, nil
}

// Pending returns the saved warnings of year.
func (s *Service) Pending(ctx context.Context, year int) (*model.WarningReport, error) {
	return s.store.LoadWarnings(ctx, year)
}

// begin starts a command run and returns its logger and a completion hook
// that records metrics.
func (s *Service) begin(ctx context.Context, command string, fields ...logger.Field) (logger.Logger, func(error)) {
	log := s.logger.With(append([]logger.Field{
		logger.String("run_id", uuid.NewString()),
		logger.String("command", command),
	}, fields...)...)
	start := time.Now()
	log.Debug(ctx, "command started")

	return log, func(err error) {
		metrics.ObserveRun(command, err, time.Since(start))
		if err != nil {
			log.Error(ctx, "command failed", logger.Error(err))
		}
		if werr := metrics.WriteTextfile(s.metricsTextfile); werr != nil {
			log.Warn(ctx, "failed to write metrics textfile", logger.Error(werr))
		}
	}
}

func (s *Service) release(ctx context.Context, unlock func() error) {
	if err := unlock(); err != nil {
		s.logger.Warn(ctx, "failed to release archive lock", logger.Error(err))
	}
}

// knownIDs collects every runner ID in the archive and the ledger.
func knownIDs(all []model.ResultEntry, decisions []model.Decision) idset.Set {
	ids := idset.New()
	for i := range all {
		if all[i].RunnerID != "" {
			ids.SeenAndRecord(all[i].RunnerID)
		}
	}
	for _, d := range decisions {
		if d.RunnerID != "" {
			ids.SeenAndRecord(d.RunnerID)
		}
	}
	return ids
}
