package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/jward/defclean"
)

// formatUsagesText writes the fixed-width report lines.
func formatUsagesText(w io.Writer, usages []CLIUsage) {
	for _, u := range usages {
		fmt.Fprintln(w, defclean.FormatUsage(u.Symbol, u.Count))
	}
}

// formatSummaryText appends the totals footer and lists deprecated symbols.
// Colour is dropped automatically when stdout is not a terminal.
func formatSummaryText(w io.Writer, r *defclean.Report) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d symbols under %s\n", bold("Scanned"), len(r.Results), r.SourceRoot)
	fmt.Fprintf(w, "  %s %d\n", green("active:    "), len(r.Active))
	fmt.Fprintf(w, "  %s %d\n", red("deprecated:"), len(r.Deprecated))
	for _, sym := range r.Deprecated {
		fmt.Fprintf(w, "    %s\n", sym)
	}
}

// formatRunsText formats recorded runs as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMATCH\tACTIVE\tDEPRECATED\tDEFCONFIG")
	for _, r := range runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		if r.FinishedAt == nil {
			started += " (unfinished)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, started, r.MatchMode, r.Active, r.Deprecated, r.Defconfig)
	}
	tw.Flush()
}

// formatSymbolHistoryText formats one symbol's per-run results as aligned columns.
func formatSymbolHistoryText(w io.Writer, usages []CLISymbolUsage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tLINE\tCOUNT\tSTATUS")
	for _, u := range usages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", u.RunID, u.Line, u.Count, u.Status)
	}
	tw.Flush()
}

// validFormats lists accepted values for --format.
var validFormats = []string{"text", "json"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
