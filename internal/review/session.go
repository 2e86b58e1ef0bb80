// Package review walks a year's pending warnings one at a time and turns
// each human ruling into a ledger decision.
//
// A Session is a resumable iterator: items already covered by the ledger
// are never shown again, and every ruling is saved before the next item
// is offered, so an interrupted session loses at most the item in hand.
package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/racearchive/internal/domain/idset"
	"github.com/okian/racearchive/internal/domain/minting"
	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/pkg/logger"
)

// Kind distinguishes the two warning categories.
type Kind int

const (
	KindUncertain Kind = iota
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindUncertain:
		return "uncertain match"
	case KindDuplicate:
		return "possible duplicate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Item is one warning awaiting a ruling. Exactly one of Match or Pair is set.
type Item struct {
	Kind  Kind
	Match *model.UncertainMatch
	Pair  *model.DuplicatePair
}

// positions returns the result positions the item covers.
func (it Item) positions() []int {
	if it.Kind == KindDuplicate {
		return it.Pair.Positions[:]
	}
	return []int{it.Match.Result.Position}
}

// Recorder persists decisions for a year.
type Recorder interface {
	Save(ctx context.Context, year int, decisions ...model.Decision) error
}

// Stats counts what happened in a session.
type Stats struct {
	Decided  int
	Deferred int
	Skipped  int
}

// Session iterates over undecided warnings of one year.
type Session struct {
	year     int
	items    []Item
	cursor   int
	entries  map[int]model.ResultEntry
	decided  map[int]bool
	skipped  map[Kind]bool
	ids      idset.Set
	recorder Recorder
	minter   *minting.Minter
	logger   logger.Logger
	stats    Stats
}

// NewSession prepares a review of report. decisions are the ledger entries
// already recorded for the year, entries the year's current results and ids
// every runner ID known to the archive. Warnings whose entry has since
// changed name are dropped, and so are decisions.
func NewSession(report *model.WarningReport, decisions []model.Decision, entries []model.ResultEntry, ids idset.Set, rec Recorder, opts ...Option) *Session {
	s := &Session{
		year:     report.TargetYear,
		entries:  make(map[int]model.ResultEntry, len(entries)),
		decided:  make(map[int]bool, len(decisions)),
		skipped:  make(map[Kind]bool),
		ids:      ids,
		recorder: rec,
		minter:   minting.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.ids == nil {
		s.ids = idset.New()
	}

	for _, e := range entries {
		s.entries[e.Position] = e
	}
	// Stale decisions were not applied, so their entries stay reviewable.
	for _, d := range decisions {
		if s.live(d.Position, d.Name) {
			s.decided[d.Position] = true
		}
	}

	matches := append([]model.UncertainMatch(nil), report.UncertainMatches...)
	sort.Slice(matches, func(i, j int) bool { return matches[i].Result.Position < matches[j].Result.Position })
	for i := range matches {
		m := &matches[i]
		if s.live(m.Result.Position, m.Result.Name) {
			s.items = append(s.items, Item{Kind: KindUncertain, Match: m})
		}
	}

	pairs := append([]model.DuplicatePair(nil), report.DuplicatesInNewYear...)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Positions[0] != pairs[j].Positions[0] {
			return pairs[i].Positions[0] < pairs[j].Positions[0]
		}
		return pairs[i].Positions[1] < pairs[j].Positions[1]
	})
	for i := range pairs {
		p := &pairs[i]
		if s.live(p.Positions[0], p.Names[0]) && s.live(p.Positions[1], p.Names[1]) {
			s.items = append(s.items, Item{Kind: KindDuplicate, Pair: p})
		}
	}
	return s
}

// live reports whether the entry at pos still carries name.
func (s *Session) live(pos int, name string) bool {
	e, ok := s.entries[pos]
	return ok && strings.TrimSpace(e.Name) == strings.TrimSpace(name)
}

// Next returns the current undecided item without consuming it. It
// reports false when nothing is left.
func (s *Session) Next() (Item, bool) {
	for s.cursor < len(s.items) {
		it := s.items[s.cursor]
		if !s.skipped[it.Kind] && !s.covered(it) {
			return it, true
		}
		s.cursor++
	}
	return Item{}, false
}

// covered reports whether any position of it already has a ruling.
func (s *Session) covered(it Item) bool {
	for _, p := range it.positions() {
		if s.decided[p] {
			return true
		}
	}
	return false
}

// Remaining returns the number of items Next would still yield.
func (s *Session) Remaining() int {
	n := 0
	for _, it := range s.items[s.cursor:] {
		if !s.skipped[it.Kind] && !s.covered(it) {
			n++
		}
	}
	return n
}

// Stats returns counts for the session so far.
func (s *Session) Stats() Stats { return s.stats }

// Entry returns the current result at position.
func (s *Session) Entry(position int) (model.ResultEntry, bool) {
	e, ok := s.entries[position]
	return e, ok
}

// Accept assigns an uncertain match to its suggested runner.
func (s *Session) Accept(ctx context.Context) error {
	it, err := s.current(KindUncertain)
	if err != nil {
		return err
	}
	return s.record(ctx, decision(it.Match.Result.Position, it.Match.Result.Name, it.Match.SuggestedID))
}

// Choose assigns an uncertain match to another existing runner.
func (s *Session) Choose(ctx context.Context, runnerID string) error {
	it, err := s.current(KindUncertain)
	if err != nil {
		return err
	}
	runnerID = strings.TrimSpace(runnerID)
	if !s.ids.Contains(runnerID) {
		return fmt.Errorf("%w: %q", ErrUnknownRunner, runnerID)
	}
	return s.record(ctx, decision(it.Match.Result.Position, it.Match.Result.Name, runnerID))
}

// NewRunner rules that an uncertain match is a new person and mints an ID.
func (s *Session) NewRunner(ctx context.Context) (string, error) {
	it, err := s.current(KindUncertain)
	if err != nil {
		return "", err
	}
	id := s.mint(it.Match.Result.Position, it.Match.Result.Name)
	if err := s.record(ctx, decision(it.Match.Result.Position, it.Match.Result.Name, id)); err != nil {
		s.ids.Unrecord(id)
		return "", err
	}
	return id, nil
}

// SamePerson rules that both entries of a duplicate pair are one new
// runner. Both positions receive the same minted ID.
func (s *Session) SamePerson(ctx context.Context) (string, error) {
	it, err := s.current(KindDuplicate)
	if err != nil {
		return "", err
	}
	p := it.Pair
	id := s.mint(p.Positions[0], p.Names[0])
	err = s.record(ctx,
		decision(p.Positions[0], p.Names[0], id),
		decision(p.Positions[1], p.Names[1], id))
	if err != nil {
		s.ids.Unrecord(id)
		return "", err
	}
	return id, nil
}

// DifferentPeople rules that a duplicate pair are two new runners.
func (s *Session) DifferentPeople(ctx context.Context) ([2]string, error) {
	it, err := s.current(KindDuplicate)
	if err != nil {
		return [2]string{}, err
	}
	p := it.Pair
	ids := [2]string{s.mint(p.Positions[0], p.Names[0]), s.mint(p.Positions[1], p.Names[1])}
	err = s.record(ctx,
		decision(p.Positions[0], p.Names[0], ids[0]),
		decision(p.Positions[1], p.Names[1], ids[1]))
	if err != nil {
		s.ids.Unrecord(ids[0])
		s.ids.Unrecord(ids[1])
		return [2]string{}, err
	}
	return ids, nil
}

// Defer leaves the current item undecided and moves on.
func (s *Session) Defer() error {
	if _, ok := s.Next(); !ok {
		return ErrNoItem
	}
	s.cursor++
	s.stats.Deferred++
	return nil
}

// SkipRemaining leaves the current item and every later item of the same
// kind undecided.
func (s *Session) SkipRemaining() (Kind, error) {
	it, ok := s.Next()
	if !ok {
		return 0, ErrNoItem
	}
	s.stats.Skipped += s.countKind(it.Kind)
	s.skipped[it.Kind] = true
	s.logger.Info(context.Background(), "skipping remaining review items",
		logger.String("kind", it.Kind.String()), logger.Int("year", s.year))
	return it.Kind, nil
}

func (s *Session) countKind(k Kind) int {
	n := 0
	for _, it := range s.items[s.cursor:] {
		if it.Kind == k && !s.covered(it) {
			n++
		}
	}
	return n
}

func (s *Session) current(k Kind) (Item, error) {
	it, ok := s.Next()
	if !ok {
		return Item{}, ErrNoItem
	}
	if it.Kind != k {
		return Item{}, fmt.Errorf("%w: %s", ErrWrongKind, it.Kind)
	}
	return it, nil
}

func (s *Session) mint(pos int, name string) string {
	return s.minter.Mint(name, s.entries[pos].Club, s.ids)
}

// record saves ds to the ledger before the item is consumed. A failed save
// leaves the item current.
func (s *Session) record(ctx context.Context, ds ...model.Decision) error {
	if err := s.recorder.Save(ctx, s.year, ds...); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	for _, d := range ds {
		s.decided[d.Position] = true
		s.ids.SeenAndRecord(d.RunnerID)
		s.logger.Info(ctx, "recorded decision",
			logger.Int("year", s.year), logger.Int("position", d.Position),
			logger.String("name", d.Name), logger.String("runner_id", d.RunnerID))
	}
	s.cursor++
	s.stats.Decided++
	return nil
}

func decision(pos int, name, id string) model.Decision {
	return model.Decision{Position: pos, Name: name, RunnerID: id}
}
