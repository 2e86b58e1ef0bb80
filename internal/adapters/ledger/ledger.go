// Package ledger persists human disambiguation decisions, one file per year.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/okian/racearchive/internal/adapters/fsx"
	"github.com/okian/racearchive/internal/adapters/repository"
	"github.com/okian/racearchive/internal/domain/model"
)

// Ledger reads and writes <dir>/<year>.json.
type Ledger struct {
	dir string
}

// New creates a Ledger stored under dir.
func New(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Path returns the ledger file of year.
func (l *Ledger) Path(year int) string {
	return filepath.Join(l.dir, strconv.Itoa(year)+".json")
}

// Load returns the decisions recorded for year, ordered by position.
// A year without a ledger has no decisions.
func (l *Ledger) Load(_ context.Context, year int) ([]model.Decision, error) {
	path := l.Path(year)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger %d: %w", year, err)
	}
	var doc model.Ledger
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &repository.MalformedError{Path: path, Err: err}
	}
	if doc.Year != 0 && doc.Year != year {
		return nil, &repository.MalformedError{Path: path, Err: fmt.Errorf("ledger is for year %d", doc.Year)}
	}
	sortDecisions(doc.Decisions)
	return doc.Decisions, nil
}

// Save merges decisions into the ledger of year. A decision replaces any
// earlier one at the same position; others are appended.
func (l *Ledger) Save(ctx context.Context, year int, decisions ...model.Decision) error {
	current, err := l.Load(ctx, year)
	if err != nil {
		return err
	}
	merged := Merge(current, decisions...)
	if err := fsx.WriteJSON(l.Path(year), model.Ledger{Year: year, Decisions: merged}); err != nil {
		return fmt.Errorf("write ledger %d: %w", year, err)
	}
	return nil
}

// Merge applies updates to current by position and returns the result
// ordered by position. Neither input is modified.
func Merge(current []model.Decision, updates ...model.Decision) []model.Decision {
	byPos := make(map[int]model.Decision, len(current)+len(updates))
	for _, d := range current {
		byPos[d.Position] = d
	}
	for _, d := range updates {
		byPos[d.Position] = d
	}
	out := make([]model.Decision, 0, len(byPos))
	for _, d := range byPos {
		out = append(out, d)
	}
	sortDecisions(out)
	return out
}

func sortDecisions(ds []model.Decision) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Position < ds[j].Position })
}
