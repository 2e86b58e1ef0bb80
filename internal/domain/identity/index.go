// Package identity groups previously resolved results by runner_id so that
// new entries can be compared against every known runner.
package identity

import (
	"sort"

	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/domain/similarity"
)

// Appearance is one historical result of a known runner.
type Appearance struct {
	Year     int
	Position int
	Name     string
	Gender   model.Gender
	Club     string
	Seconds  int
	HasTime  bool
}

// Runner is the index view of one runner_id.
type Runner struct {
	ID          string
	Appearances []Appearance // sorted by year desc, then position asc
	Names       []similarity.Profile
}

// Index is a read-only map of runner_id to historical appearances.
type Index struct {
	runners map[string]*Runner
	order   []string
}

// Build indexes every resolved entry with Year < targetYear. Entries from
// the target year or later are ignored.
func Build(entries []model.ResultEntry, targetYear int) *Index {
	idx := &Index{runners: make(map[string]*Runner)}
	for i := range entries {
		e := &entries[i]
		if !e.Resolved() || e.Year >= targetYear {
			continue
		}
		r, ok := idx.runners[e.RunnerID]
		if !ok {
			r = &Runner{ID: e.RunnerID}
			idx.runners[e.RunnerID] = r
			idx.order = append(idx.order, e.RunnerID)
		}
		secs, hasTime := e.FinishSeconds()
		r.Appearances = append(r.Appearances, Appearance{
			Year:     e.Year,
			Position: e.Position,
			Name:     e.Name,
			Gender:   model.ParseCategory(e.Category).Gender,
			Club:     e.Club,
			Seconds:  secs,
			HasTime:  hasTime,
		})
	}

	sort.Strings(idx.order)
	for _, r := range idx.runners {
		sort.Slice(r.Appearances, func(i, j int) bool {
			a, b := r.Appearances[i], r.Appearances[j]
			if a.Year != b.Year {
				return a.Year > b.Year
			}
			return a.Position < b.Position
		})
		r.Names = distinctNames(r.Appearances)
	}
	return idx
}

// distinctNames returns one profile per normalized name variant, keeping
// the most recent spelling and gender seen for it.
func distinctNames(apps []Appearance) []similarity.Profile {
	seen := make(map[string]bool)
	var out []similarity.Profile
	for _, a := range apps {
		p := similarity.NewProfile(a.Name, a.Gender)
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		out = append(out, p)
	}
	return out
}

// Len returns the number of runners in the index.
func (x *Index) Len() int { return len(x.order) }

// IDs returns runner IDs in sorted order.
func (x *Index) IDs() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// Runner returns the runner for id.
func (x *Index) Runner(id string) (*Runner, bool) {
	r, ok := x.runners[id]
	return r, ok
}

// Each calls fn for every runner in sorted ID order.
func (x *Index) Each(fn func(*Runner)) {
	for _, id := range x.order {
		fn(x.runners[id])
	}
}

// Gender returns the most frequent known gender across appearances, or
// unknown when none is known or the counts tie.
func (r *Runner) Gender() model.Gender {
	var m, f int
	for _, a := range r.Appearances {
		switch a.Gender {
		case model.GenderMale:
			m++
		case model.GenderFemale:
			f++
		}
	}
	switch {
	case m > f:
		return model.GenderMale
	case f > m:
		return model.GenderFemale
	default:
		return model.GenderUnknown
	}
}

// RecentTimes returns finish times from at most maxAppearances of the
// runner's most recent appearances within maxYears before year. When none
// qualify, every known time is returned.
func (r *Runner) RecentTimes(year, maxAppearances, maxYears int) []int {
	var recent []int
	for _, a := range r.Appearances {
		if len(recent) >= maxAppearances {
			break
		}
		if !a.HasTime || a.Year >= year || a.Year < year-maxYears {
			continue
		}
		recent = append(recent, a.Seconds)
	}
	if len(recent) > 0 {
		return recent
	}
	var all []int
	for _, a := range r.Appearances {
		if a.HasTime {
			all = append(all, a.Seconds)
		}
	}
	return all
}
