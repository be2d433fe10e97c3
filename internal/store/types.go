package store

import "time"

type Run struct {
	ID              string
	Defconfig       string
	SourceRoot      string
	MatchMode       string
	StartedAt       time.Time
	FinishedAt      *time.Time
	ActiveCount     int
	DeprecatedCount int
}

type Usage struct {
	ID      int64
	RunID   string
	Ordinal int
	LineNo  int
	Symbol  string
	Count   int
	Status  string
}

// Status values stored in usages.status.
const (
	StatusActive     = "active"
	StatusDeprecated = "deprecated"
)
