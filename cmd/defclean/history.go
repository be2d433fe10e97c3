package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/defclean/internal/store"
)

type historyFlags struct {
	limit    int
	symbol   string
	deleteID string
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan runs",
		Long:  "Lists the runs recorded with --db, newest first. --symbol lists one symbol's counts per run; --delete removes a run.",
		Args:  cobra.NoArgs,
		RunE:  a.runHistory,
	}
	cmd.Flags().IntVar(&a.history.limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&a.history.symbol, "symbol", "", "show one symbol's counts across runs")
	cmd.Flags().StringVar(&a.history.deleteID, "delete", "", "delete the run with this ID")
	cmd.MarkFlagsMutuallyExclusive("symbol", "delete")
	return cmd
}

func (a *app) runHistory(_ *cobra.Command, _ []string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if a.history.deleteID != "" {
		if err := s.DeleteRun(a.history.deleteID); err != nil {
			return err
		}
		if a.cfg.Format == "json" {
			return a.outputResult(CLIResult{Command: "history", Results: CLIDeleted{Deleted: a.history.deleteID}})
		}
		fmt.Fprintf(a.stdout, "Deleted run %s\n", a.history.deleteID)
		return nil
	}

	if a.history.symbol != "" {
		usages, err := s.SymbolHistory(a.history.symbol)
		if err != nil {
			return err
		}
		out := make([]CLISymbolUsage, 0, len(usages))
		for _, u := range usages {
			out = append(out, toCLISymbolUsage(u))
		}
		if a.cfg.Format == "json" {
			return a.outputResult(CLIResult{Command: "history", Results: out})
		}
		formatSymbolHistoryText(a.stdout, out)
		return nil
	}

	runs, err := s.Runs(a.history.limit)
	if err != nil {
		return err
	}
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, toCLIRun(r))
	}
	if a.cfg.Format == "json" {
		return a.outputResult(CLIResult{Command: "history", Results: out})
	}
	formatRunsText(a.stdout, out)
	return nil
}

// openStore opens the database named by --db or the config file. It never
// creates one: reading commands need a database a scan has written.
func (a *app) openStore() (*store.Store, error) {
	dbPath := a.cfg.DB
	if dbPath == "" {
		return nil, fmt.Errorf("no database: pass --db or set db in the config file")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run '%s --db %s <defconfig>' first)", dbPath, a.prog, dbPath)
	}
	return store.NewStore(dbPath)
}
