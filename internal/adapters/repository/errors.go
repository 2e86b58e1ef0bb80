package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for archive storage errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrMalformed = errors.New("malformed archive file")
	ErrLocked    = errors.New("archive is locked by another run")
)

// MalformedError carries the file and row of unparseable input.
// Row is zero when the whole file is at fault.
type MalformedError struct {
	Path string
	Row  int
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrMalformed and the cause.
func (e *MalformedError) Unwrap() []error { return []error{ErrMalformed, e.Err} }
