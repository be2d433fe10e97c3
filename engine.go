package defclean

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jward/defclean/internal/logger"
	"github.com/jward/defclean/internal/search"
)

// DefaultAscend is how many path elements are stripped from a defconfig path
// to reach the source root: <root>/arch/<arch>/configs/<file>.
const DefaultAscend = 4

// ClassifierFunc overrides the count-based classification of a result.
type ClassifierFunc func(ctx context.Context, res UsageResult) (Status, error)

// Sink receives results in defconfig order as soon as they are known.
type Sink interface {
	Emit(res UsageResult) error
}

// TextSink writes one fixed-width report line per result.
type TextSink struct {
	W io.Writer
}

// Emit writes FormatUsage(res.Symbol, res.Count) and a newline.
func (s TextSink) Emit(res UsageResult) error {
	_, err := fmt.Fprintln(s.W, FormatUsage(res.Symbol, res.Count))
	return err
}

// FormatUsage renders a report line: the symbol left-justified in 40 columns,
// then " : " and the count.
func FormatUsage(symbol string, count int) string {
	return fmt.Sprintf("%-40s : %d", symbol, count)
}

// Engine runs the defconfig analysis: load, extract, probe.
type Engine struct {
	counter    search.Counter
	classifier ClassifierFunc
	sink       Sink
	log        logger.Logger

	ascend     int
	sourceRoot string // overrides ascend when set
	jobs       int

	// Used only when no counter is injected.
	matchMode search.Mode
	skipDirs  []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithCounter replaces the filesystem searcher.
func WithCounter(c search.Counter) Option {
	return func(e *Engine) {
		e.counter = c
	}
}

// WithMatchMode selects substring or token matching for the default searcher.
func WithMatchMode(m search.Mode) Option {
	return func(e *Engine) {
		e.matchMode = m
	}
}

// WithSkipDirs excludes directory base names from the default searcher's walk.
func WithSkipDirs(names ...string) Option {
	return func(e *Engine) {
		e.skipDirs = append(e.skipDirs, names...)
	}
}

// WithAscend sets how many path elements are stripped from the defconfig's
// absolute path to find the source root.
func WithAscend(n int) Option {
	return func(e *Engine) {
		e.ascend = n
	}
}

// WithSourceRoot pins the source root, ignoring the ascend convention.
func WithSourceRoot(dir string) Option {
	return func(e *Engine) {
		e.sourceRoot = dir
	}
}

// WithJobs sets the number of concurrent probes. 1 (default) is fully serial.
func WithJobs(n int) Option {
	return func(e *Engine) {
		e.jobs = n
	}
}

// WithClassifier installs a classification override.
func WithClassifier(fn ClassifierFunc) Option {
	return func(e *Engine) {
		e.classifier = fn
	}
}

// WithSink streams results as they are produced.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithLogger sets the diagnostic logger. Default discards.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		ascend:    DefaultAscend,
		jobs:      1,
		matchMode: search.ModeSubstring,
		log:       logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.ascend < 0 {
		return nil, fmt.Errorf("defclean: ascend must be >= 0, got %d", e.ascend)
	}
	if e.jobs < 1 {
		return nil, fmt.Errorf("defclean: jobs must be >= 1, got %d", e.jobs)
	}
	if e.counter == nil {
		s, err := search.New(search.WithMode(e.matchMode), search.WithSkipDirs(e.skipDirs...))
		if err != nil {
			return nil, fmt.Errorf("defclean: %w", err)
		}
		e.counter = s
	}
	return e, nil
}

// SourceRoot strips ascend trailing elements from the absolute form of
// defconfigPath. The defconfig's own name counts as the first element.
func SourceRoot(defconfigPath string, ascend int) (string, error) {
	if ascend < 0 {
		return "", fmt.Errorf("ascend must be >= 0, got %d", ascend)
	}
	abs, err := filepath.Abs(defconfigPath)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", defconfigPath, err)
	}
	for range ascend {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

// SourceRootFor returns the source root the Engine would search for path.
func (e *Engine) SourceRootFor(path string) (string, error) {
	if e.sourceRoot != "" {
		return filepath.Abs(e.sourceRoot)
	}
	return SourceRoot(path, e.ascend)
}

// Probe counts references to one symbol under root and classifies it.
// Search and classifier failures are logged and never returned: a failed
// search counts as 0.
func (e *Engine) Probe(ctx context.Context, root string, ordinal, lineNo int, symbol string) UsageResult {
	count, err := e.counter.Count(ctx, root, symbol)
	if err != nil {
		serr := &SearchError{Symbol: symbol, Root: root, Err: err}
		e.log.Logf("warning: %v", serr)
		count = 0
	}

	res := UsageResult{
		Ordinal: ordinal,
		LineNo:  lineNo,
		Symbol:  symbol,
		Count:   count,
		Status:  StatusForCount(count),
	}
	if e.classifier != nil {
		status, err := e.classifier(ctx, res)
		switch {
		case err != nil:
			e.log.Logf("warning: classify %s: %v", symbol, err)
		case status != StatusActive && status != StatusDeprecated:
			e.log.Logf("warning: classify %s: unknown status %q", symbol, status)
		default:
			res.Status = status
		}
	}
	return res
}

// Analyze scans the defconfig at path and probes every symbol occurrence.
// File access problems return a *FileAccessError before anything is emitted.
func (e *Engine) Analyze(ctx context.Context, path string) (*Report, error) {
	start := time.Now()

	dc, err := OpenDefconfig(path)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	root, err := e.SourceRootFor(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Defconfig: path, SourceRoot: root}
	if e.jobs > 1 {
		err = e.analyzeParallel(ctx, dc, root, report)
	} else {
		err = e.analyzeSerial(ctx, dc, root, report)
	}
	if err != nil {
		return report, err
	}

	e.log.Logf("Scanned %s in %s (%d symbols, %d active, %d deprecated)",
		path, time.Since(start).Round(time.Millisecond),
		len(report.Results), len(report.Active), len(report.Deprecated))
	return report, nil
}

// analyzeSerial probes each symbol as its line is read, in program order.
func (e *Engine) analyzeSerial(ctx context.Context, dc *Defconfig, root string, report *Report) error {
	ordinal := 0
	for {
		line, ok := dc.Next()
		if !ok {
			break
		}
		for _, m := range ExtractSymbols(line) {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := e.Probe(ctx, root, ordinal, dc.LineNo(), m.Name)
			ordinal++
			report.add(res)
			if err := e.emit(res); err != nil {
				return err
			}
		}
	}
	return dc.Err()
}

func (e *Engine) emit(res UsageResult) error {
	if e.sink == nil {
		return nil
	}
	if err := e.sink.Emit(res); err != nil {
		return fmt.Errorf("emit %s: %w", res.Symbol, err)
	}
	return nil
}

// IsUsageError reports whether err is a command-line arity problem.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage)
}

// IsFileAccessError reports whether err means the defconfig could not be read.
func IsFileAccessError(err error) bool {
	return errors.Is(err, ErrFileAccess)
}
