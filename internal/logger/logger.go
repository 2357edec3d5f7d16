// Package logger provides verbose logging for the corpora CLI.
// When verbose mode is enabled via the --verbose flag, diagnostic
// messages are printed to stderr so operators can follow a pipeline
// run. Stage loggers prefix each line with the stage name, keeping
// interleaved output from parallel workers attributable.
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

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
	}
}

// Stage is a logger bound to one pipeline stage. Every message is
// prefixed with the stage name.
type Stage struct {
	name string
}

// ForStage returns a logger for the named stage.
func ForStage(name string) Stage {
	return Stage{name: name}
}

// Begin prints a section header marking the start of a pass.
func (s Stage) Begin() {
	Section(s.name)
}

// Debug prints a stage-prefixed debug message.
func (s Stage) Debug(format string, args ...any) {
	Debug(s.name+": "+format, args...)
}

// Info prints a stage-prefixed informational message.
func (s Stage) Info(format string, args ...any) {
	Info(s.name+": "+format, args...)
}

// Warn prints a stage-prefixed warning.
func (s Stage) Warn(format string, args ...any) {
	Warn(s.name+": "+format, args...)
}
