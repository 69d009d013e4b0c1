package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.qbashq/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".qbashq", "logs")
	}
	return filepath.Join(home, ".qbashq", "logs")
}

// DefaultLogPath returns the default evaluator log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "qbashq.log")
}

// LogSource represents the source of logs to view. The evaluator has a
// single Go log stream; the type stays so FindLogFileBySource keeps the
// same shape as the rest of the logging package's lookup functions.
type LogSource string

// LogSourceGo is the only log source: the evaluator's own process logs.
const LogSourceGo LogSource = "go"

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.qbashq/logs/qbashq.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. qbashq may not have run with --debug-log yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	if source != LogSourceGo {
		return nil, fmt.Errorf("unknown log source: %s (use: go)", source)
	}

	goPath := DefaultLogPath()
	if _, err := os.Stat(goPath); err == nil {
		return []string{goPath}, nil
	}

	return nil, fmt.Errorf("no log files found.\nChecked: %v\n\n%s", []string{goPath}, getLogHint())
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	return LogSourceGo
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs.
func getLogHint() string {
	return "To generate logs:\n  qbashq --debug-log < queries.txt"
}
