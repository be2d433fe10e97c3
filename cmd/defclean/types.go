package main

import (
	"time"

	"github.com/jward/defclean"
	"github.com/jward/defclean/internal/store"
)

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIReport is a JSON-friendly scan report. RunID is set when the run was
// recorded.
type CLIReport struct {
	RunID      string     `json:"run_id,omitempty"`
	Defconfig  string     `json:"defconfig"`
	SourceRoot string     `json:"source_root"`
	Results    []CLIUsage `json:"results"`
	Active     []string   `json:"active"`
	Deprecated []string   `json:"deprecated"`
}

// CLIUsage is one probed symbol occurrence.
type CLIUsage struct {
	Ordinal int    `json:"ordinal"`
	Line    int    `json:"line"`
	Symbol  string `json:"symbol"`
	Count   int    `json:"count"`
	Status  string `json:"status"`
}

// CLIRun is a JSON-friendly recorded run.
type CLIRun struct {
	ID         string     `json:"id"`
	Defconfig  string     `json:"defconfig"`
	SourceRoot string     `json:"source_root"`
	MatchMode  string     `json:"match_mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Active     int        `json:"active"`
	Deprecated int        `json:"deprecated"`
}

// CLISymbolUsage is one symbol's result within a recorded run.
type CLISymbolUsage struct {
	RunID  string `json:"run_id"`
	Line   int    `json:"line"`
	Count  int    `json:"count"`
	Status string `json:"status"`
}

// CLIDeleted reports a removed run.
type CLIDeleted struct {
	Deleted string `json:"deleted"`
}

// toCLIReport converts an engine report. Slices are never nil so JSON shows [].
func toCLIReport(runID string, r *defclean.Report) CLIReport {
	out := CLIReport{
		RunID:      runID,
		Defconfig:  r.Defconfig,
		SourceRoot: r.SourceRoot,
		Results:    make([]CLIUsage, 0, len(r.Results)),
		Active:     append([]string{}, r.Active...),
		Deprecated: append([]string{}, r.Deprecated...),
	}
	for _, res := range r.Results {
		out.Results = append(out.Results, CLIUsage{
			Ordinal: res.Ordinal,
			Line:    res.LineNo,
			Symbol:  res.Symbol,
			Count:   res.Count,
			Status:  string(res.Status),
		})
	}
	return out
}

func toCLIRun(r *store.Run) CLIRun {
	return CLIRun{
		ID:         r.ID,
		Defconfig:  r.Defconfig,
		SourceRoot: r.SourceRoot,
		MatchMode:  r.MatchMode,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Active:     r.ActiveCount,
		Deprecated: r.DeprecatedCount,
	}
}

func toCLISymbolUsage(u *store.Usage) CLISymbolUsage {
	return CLISymbolUsage{
		RunID:  u.RunID,
		Line:   u.LineNo,
		Count:  u.Count,
		Status: u.Status,
	}
}
