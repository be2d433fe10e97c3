package config

import "errors"

// Error definitions for config package.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrConfigFileParse = errors.New("failed to parse config file")
	ErrInvalidAscend   = errors.New("ascend must be >= 0")
	ErrInvalidJobs     = errors.New("jobs must be >= 1")
	ErrInvalidMatch    = errors.New("invalid match mode")
	ErrInvalidFormat   = errors.New("invalid format")
)
