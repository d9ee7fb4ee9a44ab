// Package logger provides leveled stderr logging for semdex.
// Warnings are always printed so failures surface during background
// indexing; debug and info output is gated behind the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables debug and info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output, typically to a buffer in tests.
// Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level, format string, gated bool, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if gated && !verbose {
		return
	}
	fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
}

// Debug prints a message when verbose output is enabled.
func Debug(format string, args ...any) {
	logf("DEBUG", format, true, args...)
}

// Info prints an informational message when verbose output is enabled.
func Info(format string, args ...any) {
	logf("INFO", format, true, args...)
}

// Warn prints a warning. Warnings are not gated on verbose mode:
// a file that fails to index should be visible without --verbose.
func Warn(format string, args ...any) {
	logf("WARN", format, false, args...)
}

// Section prints a section header when verbose output is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}
