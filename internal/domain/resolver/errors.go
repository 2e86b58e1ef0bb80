package resolver

import "errors"

// Sentinel errors for malformed resolver input.
var (
	ErrDuplicatePosition = errors.New("duplicate position in year")
	ErrNoIndex           = errors.New("identity index is required")
)
