package defclean

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks at the CLI boundary.
var (
	ErrUsage      = errors.New("usage error")
	ErrFileAccess = errors.New("file access error")
)

// UsageError reports a wrong number of positional arguments.
type UsageError struct {
	Got int
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("expected exactly one defconfig path, got %d argument(s)", e.Got)
}

func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// FileAccessError reports a defconfig that could not be opened or decoded.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("open defconfig %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

func (e *FileAccessError) Is(target error) bool { return target == ErrFileAccess }

// SearchError reports a failed usage probe for one symbol. The engine never
// propagates it; the symbol is counted as 0 and the scan moves on.
type SearchError struct {
	Symbol string
	Root   string
	Err    error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s in %s: %v", e.Symbol, e.Root, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }
