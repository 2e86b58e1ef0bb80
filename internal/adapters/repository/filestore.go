package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/okian/racearchive/internal/adapters/fsx"
	"github.com/okian/racearchive/internal/domain/model"
)

const (
	jsonExt      = ".json"
	lockFileName = ".racearchive.lock"
)

// FileStore keeps the archive as JSON files on disk.
//
// Layout: <results>/<year>.json, <warnings>/<year>.json, the runner
// database and name-change table at their configured paths.
type FileStore struct {
	resultsDir      string
	warningsDir     string
	runnerDBPath    string
	nameChangesPath string
	lockPath        string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dataDir with configuration options.
func NewFileStore(dataDir string, opts ...Option) *FileStore {
	s := &FileStore{
		resultsDir:      filepath.Join(dataDir, "results"),
		warningsDir:     filepath.Join(dataDir, "warnings"),
		runnerDBPath:    filepath.Join(dataDir, "runners.json"),
		nameChangesPath: filepath.Join(dataDir, "name_changes.json"),
		lockPath:        filepath.Join(dataDir, lockFileName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// YearPath returns the result file of year.
func (s *FileStore) YearPath(year int) string {
	return filepath.Join(s.resultsDir, strconv.Itoa(year)+jsonExt)
}

func (s *FileStore) warningsPath(year int) string {
	return filepath.Join(s.warningsDir, strconv.Itoa(year)+jsonExt)
}

// ListYears implements Store.
func (s *FileStore) ListYears(_ context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list results: %w", err)
	}
	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, jsonExt) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSuffix(name, jsonExt))
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// LoadYear implements Store.
func (s *FileStore) LoadYear(_ context.Context, year int) ([]model.ResultEntry, error) {
	path := s.YearPath(year)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("year %d: %w", year, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}
	entries := make([]model.ResultEntry, len(rows))
	seen := make(map[int]int, len(rows))
	for i, raw := range rows {
		if err := json.Unmarshal(raw, &entries[i]); err != nil {
			return nil, &MalformedError{Path: path, Row: i + 1, Err: err}
		}
		pos := entries[i].Position
		if first, dup := seen[pos]; dup {
			return nil, &MalformedError{Path: path, Row: i + 1, Err: fmt.Errorf("position %d repeats row %d", pos, first)}
		}
		seen[pos] = i + 1
		entries[i].Year = year
	}
	return entries, nil
}

// LoadAll implements Store.
func (s *FileStore) LoadAll(ctx context.Context) ([]model.ResultEntry, error) {
	years, err := s.ListYears(ctx)
	if err != nil {
		return nil, err
	}
	var all []model.ResultEntry
	for _, y := range years {
		entries, err := s.LoadYear(ctx, y)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// SaveYear implements Store.
func (s *FileStore) SaveYear(_ context.Context, year int, entries []model.ResultEntry) error {
	if entries == nil {
		entries = []model.ResultEntry{}
	}
	if err := fsx.WriteJSON(s.YearPath(year), entries); err != nil {
		return fmt.Errorf("write year %d: %w", year, err)
	}
	return nil
}

// LoadNameChanges implements Store.
func (s *FileStore) LoadNameChanges(_ context.Context) (model.NameChanges, error) {
	changes := model.NameChanges{}
	err := readJSON(s.nameChangesPath, &changes)
	if errors.Is(err, ErrNotFound) {
		return model.NameChanges{}, nil
	}
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// LoadRunnerDatabase implements Store.
func (s *FileStore) LoadRunnerDatabase(_ context.Context) (*model.RunnerDatabase, error) {
	var db model.RunnerDatabase
	if err := readJSON(s.runnerDBPath, &db); err != nil {
		return nil, err
	}
	if db.Runners == nil {
		db.Runners = map[string]*model.Runner{}
	}
	return &db, nil
}

// SaveRunnerDatabase implements Store.
func (s *FileStore) SaveRunnerDatabase(_ context.Context, db *model.RunnerDatabase) error {
	if err := fsx.WriteJSON(s.runnerDBPath, db); err != nil {
		return fmt.Errorf("write runner database: %w", err)
	}
	return nil
}

// LoadWarnings implements Store.
func (s *FileStore) LoadWarnings(_ context.Context, year int) (*model.WarningReport, error) {
	var report model.WarningReport
	if err := readJSON(s.warningsPath(year), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveWarnings implements Store.
func (s *FileStore) SaveWarnings(_ context.Context, report *model.WarningReport) error {
	if err := fsx.WriteJSON(s.warningsPath(report.TargetYear), report); err != nil {
		return fmt.Errorf("write warnings %d: %w", report.TargetYear, err)
	}
	return nil
}

// Lock implements Store.
func (s *FileStore) Lock(_ context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(s.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", s.lockPath, ErrLocked)
	}
	return lock.Unlock, nil
}

// readJSON decodes path into v. A missing file is ErrNotFound.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &MalformedError{Path: path, Err: err}
	}
	return nil
}
