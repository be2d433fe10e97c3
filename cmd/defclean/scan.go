package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/defclean"
	"github.com/jward/defclean/internal/config"
	"github.com/jward/defclean/internal/logger"
	"github.com/jward/defclean/internal/runtime"
	"github.com/jward/defclean/internal/search"
	"github.com/jward/defclean/internal/store"
	"github.com/jward/defclean/scripts"
)

// scanFlags are the root command's own flags.
type scanFlags struct {
	ascend     int
	sourceRoot string
	match      string
	skipDirs   []string
	jobs       int
	classifier string
	summary    bool
}

func (a *app) addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&a.scan.ascend, "ascend", defclean.DefaultAscend, "path elements stripped from the defconfig path to find the source root")
	f.StringVar(&a.scan.sourceRoot, "source-root", "", "search this directory instead of deriving it from the defconfig path")
	f.StringVar(&a.scan.match, "match", string(search.ModeSubstring), "match mode: substring|token")
	f.StringArrayVar(&a.scan.skipDirs, "skip-dir", nil, "directory name to skip while searching (repeatable)")
	f.IntVarP(&a.scan.jobs, "jobs", "j", 1, "symbols probed concurrently")
	f.StringVar(&a.scan.classifier, "classifier", "", "Risor script deciding active/deprecated per symbol, or builtin:count|intree")
	f.BoolVar(&a.scan.summary, "summary", false, "print active/deprecated totals after the report (text format)")
}

// applyScanFlags overrides config values with the flags given explicitly.
func (a *app) applyScanFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("ascend") {
		a.cfg.Ascend = a.scan.ascend
	}
	if flags.Changed("source-root") {
		a.cfg.SourceRoot = a.scan.sourceRoot
	}
	if flags.Changed("match") {
		a.cfg.Match = a.scan.match
	}
	if flags.Changed("skip-dir") {
		a.cfg.SkipDirs = a.scan.skipDirs
	}
	if flags.Changed("jobs") {
		a.cfg.Jobs = a.scan.jobs
	}
	if flags.Changed("classifier") {
		a.cfg.Classifier = a.scan.classifier
	}
	return a.cfg.Validate()
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	if err := a.applyScanFlags(cmd); err != nil {
		return err
	}
	cfg := a.cfg
	defconfig := args[0]

	mode, err := search.ParseMode(cfg.Match)
	if err != nil {
		return err
	}

	opts := []defclean.Option{
		defclean.WithAscend(cfg.Ascend),
		defclean.WithJobs(cfg.Jobs),
		defclean.WithMatchMode(mode),
		defclean.WithSkipDirs(cfg.SkipDirs...),
		defclean.WithLogger(a.log),
	}
	if cfg.SourceRoot != "" {
		opts = append(opts, defclean.WithSourceRoot(cfg.SourceRoot))
	}
	if cfg.Classifier != "" {
		fn, err := loadClassifier(cfg.Classifier, defconfig, a.log)
		if err != nil {
			return err
		}
		opts = append(opts, defclean.WithClassifier(fn))
	}
	if cfg.Format == "text" {
		opts = append(opts, defclean.WithSink(defclean.TextSink{W: a.stdout}))
	}

	engine, err := defclean.New(opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	started := time.Now()
	report, err := engine.Analyze(cmd.Context(), defconfig)
	if err != nil {
		return err
	}

	var runID string
	if cfg.DB != "" {
		runID, err = a.persist(report, mode, started)
		if err != nil {
			return err
		}
	}

	if cfg.Format == "json" {
		return a.outputResult(CLIResult{Command: "scan", Results: toCLIReport(runID, report)})
	}
	if a.scan.summary {
		formatSummaryText(a.stdout, report)
	}
	return nil
}

// loadClassifier adapts a Risor script to the engine's classifier hook.
// Script imports resolve next to the script.
func loadClassifier(scriptPath, defconfig string, log logger.Logger) (defclean.ClassifierFunc, error) {
	var (
		cl  *runtime.Classifier
		err error
	)
	if name, ok := strings.CutPrefix(scriptPath, config.BuiltinPrefix); ok {
		rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(log))
		cl, err = rt.Classifier(path.Join("classify", name+".risor"))
	} else {
		abs, absErr := filepath.Abs(scriptPath)
		if absErr != nil {
			return nil, fmt.Errorf("resolving classifier %q: %w", scriptPath, absErr)
		}
		rt := runtime.NewRuntime(filepath.Dir(abs), runtime.WithRuntimeLogger(log))
		cl, err = rt.Classifier(filepath.Base(abs))
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, res defclean.UsageResult) (defclean.Status, error) {
		status, err := cl.Classify(ctx, runtime.Input{
			Symbol:    res.Symbol,
			Count:     res.Count,
			Line:      res.LineNo,
			Defconfig: defconfig,
		})
		return defclean.Status(status), err
	}, nil
}

// persist records report as one finished run and returns its ID.
func (a *app) persist(report *defclean.Report, mode search.Mode, started time.Time) (string, error) {
	dbPath := a.cfg.DB
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return "", fmt.Errorf("migrating database: %w", err)
	}

	defconfig, err := filepath.Abs(report.Defconfig)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", report.Defconfig, err)
	}
	runID, err := s.BeginRun(&store.Run{
		Defconfig:  defconfig,
		SourceRoot: report.SourceRoot,
		MatchMode:  string(mode),
		StartedAt:  started,
	})
	if err != nil {
		return "", err
	}

	usages := make([]*store.Usage, 0, len(report.Results))
	for _, res := range report.Results {
		usages = append(usages, &store.Usage{
			Ordinal: res.Ordinal,
			LineNo:  res.LineNo,
			Symbol:  res.Symbol,
			Count:   res.Count,
			Status:  string(res.Status),
		})
	}
	if err := s.CommitUsages(runID, usages); err != nil {
		return "", err
	}
	if err := s.FinishRun(runID); err != nil {
		return "", err
	}
	a.log.Logf("Recorded run %s in %s", runID, dbPath)
	return runID, nil
}
