// Package runtime embeds a Risor VM that lets users override how a probed
// defconfig symbol is classified.
//
// A classifier script sees these globals:
//
//	symbol     string  symbol name without the CONFIG_ prefix
//	count      int     matching lines found in the source tree
//	line       int     1-based defconfig line the symbol came from
//	defconfig  string  defconfig path as given on the command line
//	log        object  log.Info(msg) / log.Warn(msg)
//
// The script's final expression must be "active" or "deprecated".
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/defclean/internal/logger"
)

// Runtime loads and evaluates classifier scripts.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	log        logger.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Import statements resolve against the same FS.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script-side log object.
func WithRuntimeLogger(l logger.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// NewRuntime creates a Runtime resolving relative script paths and imports
// against scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		log:        logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Input is the data a classifier script decides on.
type Input struct {
	Symbol    string
	Count     int
	Line      int
	Defconfig string
}

// Classification values a script may produce.
const (
	Active     = "active"
	Deprecated = "deprecated"
)

// RunSource evaluates Risor source with the classifier globals and returns
// the validated classification.
func (r *Runtime) RunSource(ctx context.Context, source string, in Input) (string, error) {
	return r.eval(ctx, source, "<inline>", in)
}

func (r *Runtime) eval(ctx context.Context, source, label string, in Input) (string, error) {
	globals := r.buildGlobals(in)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return "", fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil {
		return "", fmt.Errorf("runtime: script %s: produced no result", label)
	}
	s, ok := result.(*object.String)
	if !ok {
		return "", fmt.Errorf("runtime: script %s: result must be a string, got %s", label, result.Type())
	}
	switch v := s.Value(); v {
	case Active, Deprecated:
		return v, nil
	default:
		return "", fmt.Errorf("runtime: script %s: result must be %q or %q, got %q", label, Active, Deprecated, v)
	}
}

// buildImporter returns a Risor importer for the Runtime's script source, or
// nil when neither an fs.FS nor a scripts directory is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file. With an fs.FS configured the path is
// relative to the FS root; otherwise relative paths resolve against scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

func (r *Runtime) buildGlobals(in Input) map[string]any {
	return map[string]any{
		"symbol":    in.Symbol,
		"count":     in.Count,
		"line":      in.Line,
		"defconfig": in.Defconfig,
		"log":       mustProxy(&logObject{log: r.log, symbol: in.Symbol}),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Info/Warn for scripts.
type logObject struct {
	log    logger.Logger
	symbol string
}

func (l *logObject) Info(msg string) {
	l.log.Logf("[classify %s] INFO: %s", l.symbol, msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Logf("[classify %s] WARN: %s", l.symbol, msg)
}
