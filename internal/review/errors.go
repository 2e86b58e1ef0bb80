package review

import "errors"

// Sentinel errors for review actions.
var (
	ErrNoItem        = errors.New("no pending review item")
	ErrWrongKind     = errors.New("action does not apply to this item")
	ErrUnknownRunner = errors.New("unknown runner id")
)
