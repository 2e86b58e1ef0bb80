// Package aggregate folds resolved results into the runner database.
//
// Recompute is a pure function of its input: any ordering of the same
// entries produces the same database.
package aggregate

import (
	"sort"

	"github.com/okian/racearchive/internal/domain/model"
)

// Field names used in Conflict.
const (
	FieldName = "canonical_name"
	FieldClub = "canonical_club"
)

// Conflict reports a runner with more than one entry flagged canonical for
// the same field. Chosen is the entry whose value was used.
type Conflict struct {
	RunnerID string
	Field    string
	Flagged  []model.ResultRef
	Chosen   model.ResultRef
}

// Result is the output of Recompute.
type Result struct {
	Database  *model.RunnerDatabase
	Conflicts []Conflict
}

// tally counts occurrences of a value and remembers the latest year seen.
type tally struct {
	count    int
	lastYear int
}

// Recompute groups every resolved entry by runner_id and derives each
// runner's canonical values, gender, years and history. Entries must carry
// their Year.
func Recompute(entries []model.ResultEntry) Result {
	groups := make(map[string][]*model.ResultEntry)
	years := make(map[int]bool)
	db := &model.RunnerDatabase{Runners: make(map[string]*model.Runner)}

	for i := range entries {
		e := &entries[i]
		years[e.Year] = true
		if !e.Resolved() {
			db.Metadata.UnassignedResults++
			continue
		}
		db.Metadata.TotalParticipations++
		groups[e.RunnerID] = append(groups[e.RunnerID], e)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var conflicts []Conflict
	for _, id := range ids {
		group := groups[id]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Year != group[j].Year {
				return group[i].Year < group[j].Year
			}
			return group[i].Position < group[j].Position
		})
		r, cs := fold(id, group)
		db.Runners[id] = r
		conflicts = append(conflicts, cs...)
	}

	db.Metadata.YearsIncluded = make([]int, 0, len(years))
	for y := range years {
		db.Metadata.YearsIncluded = append(db.Metadata.YearsIncluded, y)
	}
	sort.Ints(db.Metadata.YearsIncluded)
	db.Metadata.TotalRunners = len(db.Runners)
	db.Metadata.CanonicalConflicts = len(conflicts)

	return Result{Database: db, Conflicts: conflicts}
}

// fold builds one runner from its entries, sorted by year then position.
func fold(id string, group []*model.ResultEntry) (*model.Runner, []Conflict) {
	r := &model.Runner{
		RunnerID:   id,
		TotalRaces: len(group),
	}

	names := make(map[string]*tally)
	clubs := make(map[string]*tally)
	genders := make(map[string]*tally)
	var nameFlags, clubFlags []*model.ResultEntry

	for _, e := range group {
		count(names, e.Name, e.Year)
		count(clubs, e.Club, e.Year)
		if g := model.ParseCategory(e.Category).Gender; g.Known() {
			count(genders, string(g), e.Year)
		}
		if e.CanonicalName {
			nameFlags = append(nameFlags, e)
		}
		if e.CanonicalClub {
			clubFlags = append(clubFlags, e)
		}
		if n := len(r.Years); n == 0 || r.Years[n-1] != e.Year {
			r.Years = append(r.Years, e.Year)
		}
		r.History = append(r.History, model.Race{
			Year:     e.Year,
			Position: e.Position,
			Name:     e.Name,
			Category: e.Category,
			Club:     e.Club,
			Time:     e.FinishTime(),
		})
	}

	var conflicts []Conflict
	if chosen, c := flagged(id, FieldName, nameFlags); chosen != nil {
		r.CanonicalName, r.CanonicalNameSource = chosen.Name, model.SourceManual
		if c != nil {
			conflicts = append(conflicts, *c)
		}
	} else {
		r.CanonicalName, r.CanonicalNameSource = mostCommon(names), model.SourceAutomatic
	}
	if chosen, c := flagged(id, FieldClub, clubFlags); chosen != nil {
		r.MostCommonClub, r.MostCommonClubSrc = chosen.Club, model.SourceManual
		if c != nil {
			conflicts = append(conflicts, *c)
		}
	} else {
		r.MostCommonClub, r.MostCommonClubSrc = mostCommon(clubs), model.SourceAutomatic
	}
	r.Gender = model.Gender(mostCommon(genders))

	return r, conflicts
}

func count(m map[string]*tally, value string, year int) {
	if value == "" {
		return
	}
	t, ok := m[value]
	if !ok {
		t = &tally{}
		m[value] = t
	}
	t.count++
	if year > t.lastYear {
		t.lastYear = year
	}
}

// mostCommon returns the most frequent value. Ties go to the value used in
// the most recent year, then to the lexicographically smallest.
func mostCommon(m map[string]*tally) string {
	best := ""
	var bt *tally
	for v, t := range m {
		switch {
		case bt == nil,
			t.count > bt.count,
			t.count == bt.count && t.lastYear > bt.lastYear,
			t.count == bt.count && t.lastYear == bt.lastYear && v < best:
			best, bt = v, t
		}
	}
	return best
}

// flagged picks the canonical entry among flags: the latest year, then the
// lowest position. A Conflict is returned when more than one is flagged.
func flagged(id, field string, flags []*model.ResultEntry) (*model.ResultEntry, *Conflict) {
	if len(flags) == 0 {
		return nil, nil
	}
	chosen := flags[0]
	for _, e := range flags[1:] {
		if e.Year > chosen.Year || (e.Year == chosen.Year && e.Position < chosen.Position) {
			chosen = e
		}
	}
	if len(flags) == 1 {
		return chosen, nil
	}
	c := &Conflict{RunnerID: id, Field: field, Chosen: chosen.Ref()}
	for _, e := range flags {
		c.Flagged = append(c.Flagged, e.Ref())
	}
	return chosen, c
}
