// Package repository persists the race archive: per-year result files, the
// runner database, warnings and the known name-change table.
package repository

import (
	"context"

	"github.com/okian/racearchive/internal/domain/model"
)

// Store provides read/write access to the archive.
type Store interface {
	// ListYears returns every year with a result file, ascending.
	ListYears(ctx context.Context) ([]int, error)

	// LoadYear returns the entries of one year with Year set.
	// Returns ErrNotFound if the year has no file and *MalformedError if
	// it cannot be parsed.
	LoadYear(ctx context.Context, year int) ([]model.ResultEntry, error)

	// LoadAll returns the entries of every year, ordered by year.
	LoadAll(ctx context.Context) ([]model.ResultEntry, error)

	// SaveYear replaces a year's result file atomically.
	SaveYear(ctx context.Context, year int, entries []model.ResultEntry) error

	// LoadNameChanges returns the known name-change table. A missing file
	// yields an empty table.
	LoadNameChanges(ctx context.Context) (model.NameChanges, error)

	// LoadRunnerDatabase returns ErrNotFound until a recompute has run.
	LoadRunnerDatabase(ctx context.Context) (*model.RunnerDatabase, error)
	SaveRunnerDatabase(ctx context.Context, db *model.RunnerDatabase) error

	// LoadWarnings returns ErrNotFound when year has no warnings file.
	LoadWarnings(ctx context.Context, year int) (*model.WarningReport, error)
	SaveWarnings(ctx context.Context, report *model.WarningReport) error

	// Lock takes the exclusive archive lock. It returns ErrLocked when
	// another process holds it.
	Lock(ctx context.Context) (unlock func() error, err error)
}
