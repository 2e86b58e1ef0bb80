package repository

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithResultsDir sets the directory holding <year>.json result files.
func WithResultsDir(dir string) Option {
	return func(s *FileStore) {
		if dir != "" {
			s.resultsDir = dir
		}
	}
}

// WithWarningsDir sets the directory holding <year>.json warning reports.
func WithWarningsDir(dir string) Option {
	return func(s *FileStore) {
		if dir != "" {
			s.warningsDir = dir
		}
	}
}

// WithRunnerDBPath sets the runner database file.
func WithRunnerDBPath(path string) Option {
	return func(s *FileStore) {
		if path != "" {
			s.runnerDBPath = path
		}
	}
}

// WithNameChangesPath sets the known name-change table file.
func WithNameChangesPath(path string) Option {
	return func(s *FileStore) {
		if path != "" {
			s.nameChangesPath = path
		}
	}
}

// WithLockPath sets the advisory lock file.
func WithLockPath(path string) Option {
	return func(s *FileStore) {
		if path != "" {
			s.lockPath = path
		}
	}
}
