// Package search counts textual references to a symbol name inside a source
// tree. It replaces a recursive grep with an in-process walk so results do
// not depend on an external binary.
package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=search.go -destination=mocksearch.gen.go -package=search

// Counter reports how many lines under root mention name.
type Counter interface {
	Count(ctx context.Context, root, name string) (int, error)
}

// Mode selects how a line is matched against a symbol name.
type Mode string

const (
	// ModeSubstring matches any line containing the name, like grep -r.
	ModeSubstring Mode = "substring"
	// ModeToken matches whole identifiers only; C sources go through tree-sitter.
	ModeToken Mode = "token"
)

// Modes lists accepted values for ParseMode.
var Modes = []Mode{ModeSubstring, ModeToken}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if Mode(s) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid match mode %q: must be %s or %s", s, ModeSubstring, ModeToken)
}

// binaryProbeSize is how much of a file is inspected for NUL bytes.
const binaryProbeSize = 8 << 10

// Searcher is the filesystem-backed Counter. File listings are computed once
// per root and reused for every symbol, so a scan walks the tree only once.
// Safe for concurrent use.
type Searcher struct {
	mode     Mode
	skipDirs map[string]bool

	mu       sync.Mutex
	listings map[string]*listing
}

type listing struct {
	once  sync.Once
	files []string
	err   error
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithMode sets the match mode. Default is ModeSubstring.
func WithMode(m Mode) Option {
	return func(s *Searcher) {
		s.mode = m
	}
}

// WithSkipDirs excludes directories with the given base names from the walk.
func WithSkipDirs(names ...string) Option {
	return func(s *Searcher) {
		for _, n := range names {
			s.skipDirs[n] = true
		}
	}
}

// New creates a Searcher.
func New(opts ...Option) (*Searcher, error) {
	s := &Searcher{
		mode:     ModeSubstring,
		skipDirs: make(map[string]bool),
		listings: make(map[string]*listing),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := ParseMode(string(s.mode)); err != nil {
		return nil, err
	}
	return s, nil
}

// Count returns the number of matching lines under root. Unreadable files are
// skipped; a missing root is an error.
func (s *Searcher) Count(ctx context.Context, root, name string) (int, error) {
	if name == "" {
		return 0, errors.New("empty symbol name")
	}
	files, err := s.files(root)
	if err != nil {
		return 0, err
	}

	m := newMatcher(s.mode, name)
	total := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		total += m.countFile(ctx, path, content)
	}
	return total, nil
}

// files returns the cached regular-file listing for root.
func (s *Searcher) files(root string) ([]string, error) {
	s.mu.Lock()
	l, ok := s.listings[root]
	if !ok {
		l = &listing{}
		s.listings[root] = l
	}
	s.mu.Unlock()

	l.once.Do(func() {
		l.files, l.err = s.walk(root)
	})
	return l.files, l.err
}

// walk lists regular files under root. Symlinks are not followed and
// directories that cannot be read are skipped.
func (s *Searcher) walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	// The root itself may be a symlink; links below it are never followed.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}

	var paths []string
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == resolved {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != resolved && s.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}
