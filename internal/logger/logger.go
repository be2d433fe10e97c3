// Package logger provides the diagnostic logging used by defclean.
// Report output never goes through a Logger.
package logger

import (
	"fmt"
	"io"
	"sync"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=logger.go -destination=mocklogger.gen.go -package=logger

// Logger interface provides logging capabilities.
type Logger interface {
	// Logf logs a formatted message.
	Logf(format string, args ...any)
}

type noopLogger struct{}

// NewNoopLogger creates a logger that discards everything.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (n *noopLogger) Logf(_ string, _ ...any) {}

// writerLogger serializes messages onto a single writer.
type writerLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterLogger creates a thread-safe logger writing one line per message to w.
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// Logf writes a formatted message followed by a newline.
func (l *writerLogger) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format+"\n", args...)
}
