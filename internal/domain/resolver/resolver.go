// Package resolver assigns runner IDs to a target year's results.
//
// Each unresolved entry moves through ledger replay, known name changes,
// fuzzy matching against the identity index, same-year duplicate detection
// and finally minting. Anything uncertain is reported, never guessed.
package resolver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/racearchive/internal/domain/identity"
	"github.com/okian/racearchive/internal/domain/idset"
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/domain/normalize"
	"github.com/okian/racearchive/internal/domain/similarity"
	"github.com/okian/racearchive/pkg/logger"
	"github.com/okian/racearchive/pkg/metrics"
)

const (
	defaultAutoAssign        = 0.92
	defaultWarning           = 0.85
	defaultDuplicate         = 0.80
	defaultRecentAppearances = 5
	defaultRecentYears       = 5
	duplicateFirstNameLength = 1
	confidenceScale          = 10000
)

// Input is everything one resolution run reads.
type Input struct {
	Year      int
	Entries   []model.ResultEntry
	Index     *identity.Index
	Decisions []model.Decision
	Aliases   model.NameChanges
	// IDs holds every runner ID already taken. Minted IDs are recorded in it.
	IDs idset.Set
}

// Outcome is the result of one resolution run.
type Outcome struct {
	Entries []model.ResultEntry
	Report  model.WarningReport
	Minted  []string
	Stale   []model.Decision
}

// Resolver matches a year's results against known runners.
type Resolver struct {
	scorer            *similarity.Scorer
	dupScorer         *similarity.Scorer
	minter            *minting.Minter
	autoAssign        float64
	warning           float64
	duplicate         float64
	recentAppearances int
	recentYears       int
	logger            logger.Logger
}

// New creates a Resolver with configuration options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		scorer:            similarity.New(),
		dupScorer:         similarity.New(similarity.WithFirstNameLength(duplicateFirstNameLength)),
		minter:            minting.New(),
		autoAssign:        defaultAutoAssign,
		warning:           defaultWarning,
		duplicate:         defaultDuplicate,
		recentAppearances: defaultRecentAppearances,
		recentYears:       defaultRecentYears,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// candidate is the best historical runner found for one entry.
type candidate struct {
	id    string
	score float64
}

// run carries the mutable state of a single Resolve call.
type run struct {
	*Resolver
	ctx     context.Context
	in      Input
	log     logger.Logger
	entries []model.ResultEntry
	byPos   map[int]int
	inYear  map[string]int
	out     *Outcome
}

// Resolve assigns runner IDs to in.Entries and returns the updated entries
// with a warning report. The input slice is not modified. An error is
// returned only for malformed input, before any entry is changed.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*Outcome, error) {
	if in.Index == nil {
		return nil, ErrNoIndex
	}
	if in.IDs == nil {
		in.IDs = idset.New()
	}

	entries := make([]model.ResultEntry, len(in.Entries))
	copy(entries, in.Entries)
	byPos := make(map[int]int, len(entries))
	for i := range entries {
		entries[i].Year = in.Year
		entries[i].Division = model.ParseCategory(entries[i].Category)
		if _, dup := byPos[entries[i].Position]; dup {
			return nil, fmt.Errorf("%w: year %d position %d", ErrDuplicatePosition, in.Year, entries[i].Position)
		}
		byPos[entries[i].Position] = i
	}

	log := r.logger
	if log == nil {
		log = logger.Get()
	}

	st := &run{
		Resolver: r,
		ctx:      ctx,
		in:       in,
		log:      log.With(logger.Int("year", in.Year)),
		entries:  entries,
		byPos:    byPos,
		inYear:   make(map[string]int),
		out: &Outcome{
			Report: model.WarningReport{
				TargetYear:          in.Year,
				UncertainMatches:    []model.UncertainMatch{},
				DuplicatesInNewYear: []model.DuplicatePair{},
			},
		},
	}
	st.resolve()
	st.out.Entries = st.entries
	return st.out, nil
}

func (st *run) resolve() {
	sum := &st.out.Report.Summary
	sum.TotalNewResults = len(st.entries)

	decided := st.replayLedger()

	for i := range st.entries {
		e := &st.entries[i]
		if !e.Resolved() {
			continue
		}
		st.inYear[e.RunnerID] = e.Position
		if !decided[e.Position] {
			sum.AlreadyResolved++
			metrics.RecordOutcome(metrics.OutcomeAlreadyResolved)
		}
	}

	// Pending entries in position order.
	pending := make([]int, 0, len(st.entries))
	for i := range st.entries {
		if !st.entries[i].Resolved() {
			pending = append(pending, i)
		}
	}
	sort.Slice(pending, func(a, b int) bool {
		return st.entries[pending[a]].Position < st.entries[pending[b]].Position
	})

	var unresolved, mintable []int
	for _, i := range pending {
		switch st.matchEntry(&st.entries[i]) {
		case stateAssigned:
		case stateUncertain:
			unresolved = append(unresolved, i)
		case stateNew:
			unresolved = append(unresolved, i)
			mintable = append(mintable, i)
		}
	}

	flagged := st.detectDuplicates(unresolved)

	for _, i := range mintable {
		e := &st.entries[i]
		if flagged[e.Position] {
			continue
		}
		id := st.minter.Mint(e.Name, e.Club, st.in.IDs)
		e.RunnerID = id
		st.inYear[id] = e.Position
		st.out.Minted = append(st.out.Minted, id)
		sum.NewRunners++
		metrics.RecordOutcome(metrics.OutcomeMinted)
		st.log.Debug(st.ctx, "minted new runner", logger.Int("position", e.Position), logger.String("name", e.Name), logger.String("runner_id", id))
	}

	for i := range st.entries {
		if !st.entries[i].Resolved() {
			sum.Pending++
		}
	}
	sum.UncertainMatches = len(st.out.Report.UncertainMatches)
	sum.DuplicatePairs = len(st.out.Report.DuplicatesInNewYear)
}

// replayLedger applies recorded decisions whose (position, name) still
// matches the live entry. It returns the positions it applied.
func (st *run) replayLedger() map[int]bool {
	applied := make(map[int]bool)
	sum := &st.out.Report.Summary
	for _, d := range st.in.Decisions {
		i, ok := st.byPos[d.Position]
		if !ok || d.RunnerID == "" || strings.TrimSpace(st.entries[i].Name) != strings.TrimSpace(d.Name) {
			sum.StaleDecisions++
			st.out.Stale = append(st.out.Stale, d)
			metrics.RecordOutcome(metrics.OutcomeStale)
			live := ""
			if ok {
				live = st.entries[i].Name
			}
			st.log.Warn(st.ctx, "skipping stale disambiguation decision",
				logger.Int("position", d.Position),
				logger.String("decision_name", d.Name),
				logger.String("live_name", live),
				logger.String("runner_id", d.RunnerID))
			continue
		}
		e := &st.entries[i]
		e.RunnerID = d.RunnerID
		st.in.IDs.SeenAndRecord(d.RunnerID)
		if !applied[d.Position] {
			sum.LedgerApplied++
			metrics.RecordOutcome(metrics.OutcomeLedger)
		}
		applied[d.Position] = true
	}
	return applied
}

type matchState int

const (
	stateAssigned matchState = iota
	stateUncertain
	stateNew
)

// matchEntry runs the alias and fuzzy steps for one unresolved entry.
func (st *run) matchEntry(e *model.ResultEntry) matchState {
	profile := similarity.NewProfile(e.Name, e.Division.Gender)
	if profile.Key == "" {
		// Blank names cannot be compared; they always get a fresh ID.
		return stateNew
	}
	secs, hasTime := e.FinishSeconds()

	if id, ok := st.aliasMatch(profile, secs, hasTime); ok {
		if pos, taken := st.inYear[id]; taken {
			st.uncertain(e, id, 1.0, model.ReasonAlreadyInYear)
			st.log.Info(st.ctx, "alias match already present in year",
				logger.Int("position", e.Position), logger.String("runner_id", id), logger.Int("other_position", pos))
			return stateUncertain
		}
		st.assign(e, id)
		st.out.Report.Summary.AliasMatches++
		metrics.RecordOutcome(metrics.OutcomeAlias)
		st.log.Debug(st.ctx, "assigned by known name change", logger.Int("position", e.Position), logger.String("runner_id", id))
		return stateAssigned
	}

	pass, fail := st.bestCandidates(profile, e.Year, secs, hasTime)
	if pass.id != "" {
		metrics.ObserveSimilarity(pass.score)
	}

	switch {
	case pass.id != "" && pass.score >= st.autoAssign:
		if pos, taken := st.inYear[pass.id]; taken {
			st.uncertain(e, pass.id, pass.score, model.ReasonAlreadyInYear)
			st.log.Info(st.ctx, "best candidate already present in year",
				logger.Int("position", e.Position), logger.String("runner_id", pass.id), logger.Int("other_position", pos))
			return stateUncertain
		}
		st.assign(e, pass.id)
		st.out.Report.Summary.AutoAssigned++
		metrics.RecordOutcome(metrics.OutcomeAutoAssigned)
		st.log.Debug(st.ctx, "auto-assigned", logger.Int("position", e.Position),
			logger.String("runner_id", pass.id), logger.Float64("similarity", pass.score))
		return stateAssigned
	case pass.id != "" && pass.score >= st.warning:
		st.uncertain(e, pass.id, pass.score, model.ReasonFuzzyMatch)
		return stateUncertain
	case fail.id != "" && fail.score >= st.warning:
		st.uncertain(e, fail.id, fail.score, model.ReasonTimeMismatch)
		return stateUncertain
	default:
		return stateNew
	}
}

// aliasMatch looks the entry's key up in the known name-change table.
func (st *run) aliasMatch(p similarity.Profile, secs int, hasTime bool) (string, bool) {
	if p.Key == "" || len(st.in.Aliases) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(st.in.Aliases))
	for id := range st.in.Aliases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, alias := range st.in.Aliases[id] {
			if normalize.Key(alias) != p.Key {
				continue
			}
			if r, ok := st.in.Index.Runner(id); ok {
				if !similarity.GenderGate(p.Gender, r.Gender()) {
					continue
				}
				if !st.scorer.TimePlausible(secs, hasTime, r.RecentTimes(st.in.Year, st.recentAppearances, st.recentYears)) {
					continue
				}
			}
			return id, true
		}
	}
	return "", false
}

// bestCandidates returns the best runner whose times are plausible and the
// best runner rejected only by the time gate. Ties go to the smaller ID.
func (st *run) bestCandidates(p similarity.Profile, year, secs int, hasTime bool) (pass, fail candidate) {
	st.in.Index.Each(func(r *identity.Runner) {
		if !similarity.GenderGate(p.Gender, r.Gender()) {
			return
		}
		best := -1.0
		for _, name := range r.Names {
			if !st.scorer.FirstNameGate(p, name) {
				continue
			}
			if s := st.scorer.Score(p, name); s > best {
				best = s
			}
		}
		if best < 0 {
			return
		}
		if st.scorer.TimePlausible(secs, hasTime, r.RecentTimes(year, st.recentAppearances, st.recentYears)) {
			if best > pass.score || pass.id == "" {
				pass = candidate{id: r.ID, score: best}
			}
			return
		}
		if best > fail.score || fail.id == "" {
			fail = candidate{id: r.ID, score: best}
		}
	})
	return pass, fail
}

func (st *run) assign(e *model.ResultEntry, id string) {
	e.RunnerID = id
	st.inYear[id] = e.Position
	st.in.IDs.SeenAndRecord(id)
}

func (st *run) uncertain(e *model.ResultEntry, id string, score float64, reason string) {
	st.out.Report.UncertainMatches = append(st.out.Report.UncertainMatches, model.UncertainMatch{
		Result:      e.Ref(),
		SuggestedID: id,
		Confidence:  roundConfidence(score),
		Reason:      reason,
	})
	metrics.RecordOutcome(metrics.OutcomeUncertain)
	st.log.Info(st.ctx, "uncertain match left for review",
		logger.Int("position", e.Position),
		logger.String("name", e.Name),
		logger.String("suggested_id", id),
		logger.Float64("confidence", score),
		logger.String("reason", reason))
}

// detectDuplicates compares every pair of still-unresolved entries and
// returns the positions that take part in a flagged pair.
func (st *run) detectDuplicates(idx []int) map[int]bool {
	flagged := make(map[int]bool)
	profiles := make([]similarity.Profile, len(idx))
	for k, i := range idx {
		profiles[k] = similarity.NewProfile(st.entries[i].Name, st.entries[i].Division.Gender)
	}
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			pa, pb := profiles[a], profiles[b]
			if pa.Key == "" || pb.Key == "" || !st.dupScorer.Compatible(pa, pb) {
				continue
			}
			score := st.dupScorer.Score(pa, pb)
			if score < st.duplicate {
				continue
			}
			ea, eb := &st.entries[idx[a]], &st.entries[idx[b]]
			st.out.Report.DuplicatesInNewYear = append(st.out.Report.DuplicatesInNewYear, model.DuplicatePair{
				Positions:  [2]int{ea.Position, eb.Position},
				Names:      [2]string{ea.Name, eb.Name},
				Similarity: roundConfidence(score),
				Reason:     model.ReasonPossibleDuplicate,
			})
			flagged[ea.Position] = true
			flagged[eb.Position] = true
			metrics.RecordOutcome(metrics.OutcomeDuplicate)
			st.log.Info(st.ctx, "possible duplicate in year",
				logger.Int("position_a", ea.Position), logger.String("name_a", ea.Name),
				logger.Int("position_b", eb.Position), logger.String("name_b", eb.Name),
				logger.Float64("similarity", score))
		}
	}
	return flagged
}

func roundConfidence(score float64) float64 {
	return math.Round(score*confidenceScale) / confidenceScale
}
