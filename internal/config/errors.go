package config

import "errors"

// Sentinel errors. Load wraps file and env failures in ErrLoadConfig and
// validation failures in ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
