package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/defclean/internal/store"
)

type reportFlags struct {
	status string
}

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Print the results of a recorded run",
		Long:  "Prints the usages recorded for a run in defconfig order. Defaults to the latest finished run.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runReport,
	}
	cmd.Flags().StringVar(&a.report.status, "status", "", "only show symbols with this status: active|deprecated")
	return cmd
}

func (a *app) runReport(_ *cobra.Command, args []string) error {
	switch a.report.status {
	case "", store.StatusActive, store.StatusDeprecated:
	default:
		return fmt.Errorf("invalid status %q: must be %s or %s", a.report.status, store.StatusActive, store.StatusDeprecated)
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var stored *store.Run
	if len(args) == 1 {
		stored, err = s.RunByID(args[0])
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
	} else {
		stored, err = s.LatestRun()
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("no finished runs in %s", a.cfg.DB)
		}
	}

	usages, err := s.UsagesByRun(stored.ID, a.report.status)
	if err != nil {
		return err
	}

	out := CLIReport{
		RunID:      stored.ID,
		Defconfig:  stored.Defconfig,
		SourceRoot: stored.SourceRoot,
		Results:    make([]CLIUsage, 0, len(usages)),
		Active:     []string{},
		Deprecated: []string{},
	}
	for _, u := range usages {
		out.Results = append(out.Results, CLIUsage{
			Ordinal: u.Ordinal,
			Line:    u.LineNo,
			Symbol:  u.Symbol,
			Count:   u.Count,
			Status:  u.Status,
		})
		if u.Status == store.StatusActive {
			out.Active = append(out.Active, u.Symbol)
		} else {
			out.Deprecated = append(out.Deprecated, u.Symbol)
		}
	}

	if a.cfg.Format == "json" {
		return a.outputResult(CLIResult{Command: "report", Results: out})
	}
	formatUsagesText(a.stdout, out.Results)
	return nil
}
