// Package debug provides opt-in structured logging for the bundler pipeline.
// It is silent by default; callers redirect output explicitly via
// SetDebugOutput or InitDebugLogFile, the same pattern the rest of this
// codebase uses for every long-running component.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build-time flag, overridable with
// -ldflags "-X github.com/standardbeagle/phpbundle/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetDebugOutput sets a custom writer for debug output. Pass nil to disable.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile opens a timestamped log file under the OS temp directory
// and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "phpbundle-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled reports whether debug logging is switched on, either by
// the EnableDebug build flag or by the DEBUG environment variable set to
// "1" or "true". Output is only written once a writer is also set.
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Log provides structured debug logging with a component tag.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// LogAnalyze logs file-analyzer activity (4.D).
func LogAnalyze(format string, args ...interface{}) { Log("ANALYZE", format, args...) }

// LogResolve logs dependency-resolver fixpoint activity (4.F).
func LogResolve(format string, args ...interface{}) { Log("RESOLVE", format, args...) }

// LogAutoload logs autoload-rule matching (4.E).
func LogAutoload(format string, args ...interface{}) { Log("AUTOLOAD", format, args...) }

// LogStore logs persistent-store transactions (4.B).
func LogStore(format string, args ...interface{}) { Log("STORE", format, args...) }

// LogEmit logs load-order emission (4.G).
func LogEmit(format string, args ...interface{}) { Log("EMIT", format, args...) }

// CatastrophicError records a condition that indicates the store or pipeline
// is in an inconsistent state, without aborting the caller.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w := getDebugWriter()
	if w != nil {
		fmt.Fprintf(w, "[CATASTROPHIC] %s\n", msg)
	}
}
