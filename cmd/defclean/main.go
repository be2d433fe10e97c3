package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/defclean"
	"github.com/jward/defclean/internal/config"
	"github.com/jward/defclean/internal/logger"
)

// exitUsage is returned for both a bad command line and an unreadable
// defconfig. os.Exit truncates it to 254 on POSIX.
const exitUsage = -2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, filepath.Base(os.Args[0]), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries flag values and output streams for one invocation.
type app struct {
	prog   string
	stdout io.Writer
	stderr io.Writer

	flagConfig  string
	flagFormat  string
	flagDB      string
	flagVerbose bool

	scan    scanFlags
	history historyFlags
	report  reportFlags

	cfg     *config.Config
	log     logger.Logger
	command string
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, prog string, args []string, stdout, stderr io.Writer) int {
	a := &app{
		prog:   prog,
		stdout: stdout,
		stderr: stderr,
		cfg:    config.Default(),
		log:    logger.NewNoopLogger(),
	}
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return a.exitCode(root.ExecuteContext(ctx))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   a.prog + " defconfig",
		Short: "Report which defconfig symbols are still referenced by the source tree",
		Long: "Scans a kernel defconfig (plain or gzip) and counts, for every CONFIG_<NAME>\n" +
			"occurrence, the source lines under the kernel tree that mention <NAME>.\n" +
			"Symbols nobody references are reported as deprecated.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		Args:              exactlyOneDefconfig,
		PersistentPreRunE: a.loadConfig,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		if c != c.Root() {
			return err
		}
		return fmt.Errorf("%w: %w", defclean.ErrUsage, err)
	})

	root.PersistentFlags().StringVar(&a.flagConfig, "config", "", "YAML file with default settings")
	root.PersistentFlags().StringVar(&a.flagFormat, "format", "text", "output format: text|json")
	root.PersistentFlags().StringVar(&a.flagDB, "db", "", "SQLite database recording scan runs")
	root.PersistentFlags().BoolVarP(&a.flagVerbose, "verbose", "v", false, "log progress and warnings to stderr")

	a.addScanFlags(root)
	root.RunE = a.runScan

	root.AddCommand(a.historyCmd())
	root.AddCommand(a.reportCmd())
	return root
}

// exactlyOneDefconfig enforces the single positional argument before any
// file is touched.
func exactlyOneDefconfig(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &defclean.UsageError{Got: len(args)}
	}
	return nil
}

// loadConfig layers defaults, the optional config file and explicitly set
// flags, in that order.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	a.command = "scan"
	if cmd != cmd.Root() {
		a.command = cmd.Name()
	}
	if a.flagConfig != "" {
		cfg, err := config.Load(a.flagConfig)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		a.cfg.Format = a.flagFormat
	}
	if flags.Changed("db") {
		a.cfg.DB = a.flagDB
	}
	if err := validateFormat(a.cfg.Format); err != nil {
		return err
	}
	if a.flagVerbose {
		a.log = logger.NewWriterLogger(a.stderr)
	}
	return nil
}

// exitCode reports err the way the command line contract requires and maps
// it to a status.
func (a *app) exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case defclean.IsUsageError(err):
		a.log.Logf("%v", err)
		fmt.Fprintf(a.stdout, "ERROR: Usage of the script is:\n %s defconfig\n", a.prog)
		return exitUsage
	case defclean.IsFileAccessError(err):
		a.log.Logf("%v", err)
		fmt.Fprintln(a.stdout, "ERROR: Some of the input files were missing, check again!")
		return exitUsage
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(a.stderr, "Interrupted")
		return 130
	}

	if a.cfg.Format == "json" {
		a.outputError(err)
	} else {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
	}
	return 1
}

// outputResult writes a JSON envelope.
func (a *app) outputResult(result CLIResult) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes err as a CLIResult envelope on stdout.
func (a *app) outputError(err error) {
	_ = a.outputResult(CLIResult{Command: a.command, Error: err.Error()})
}
