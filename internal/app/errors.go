package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrRunnerNotFound = errors.New("runner not found")
	ErrNoResults      = errors.New("no results for year")
)
