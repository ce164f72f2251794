package logging

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger provides optional verbose logging and lightweight timing helpers.
// The zero value discards everything. Copies share one write lock so
// parallel workers never interleave partial lines.
type Logger struct {
	Writer  io.Writer
	Verbose bool

	mu *sync.Mutex
}

// New returns a Logger writing to writer. Verbose enables Verbosef and Measure.
func New(writer io.Writer, verbose bool) Logger {
	return Logger{Writer: writer, Verbose: verbose, mu: &sync.Mutex{}}
}

// Infof writes one line. It is a no-op when Writer is nil.
func (l Logger) Infof(format string, args ...any) {
	if l.Writer == nil {
		return
	}
	if l.mu != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
	}
	fmt.Fprintf(l.Writer, format+"\n", args...)
}

// Warnf writes a line prefixed with "Warning: " regardless of Verbose.
func (l Logger) Warnf(format string, args ...any) {
	l.Infof("Warning: "+format, args...)
}

// Verbosef writes a line prefixed with "Verbose: " when Verbose is set.
func (l Logger) Verbosef(format string, args ...any) {
	if !l.Verbose {
		return
	}
	l.Infof("Verbose: "+format, args...)
}

// Measure returns a stop function that logs the elapsed time when called.
func (l Logger) Measure(label string) func() {
	if !l.Verbose {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		l.Verbosef("%s took %s", label, elapsed)
	}
}
