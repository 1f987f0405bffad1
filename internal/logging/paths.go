package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.veyra/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".veyra", "logs")
	}
	return filepath.Join(home, ".veyra", "logs")
}

// DefaultLogPath returns the default server log path, used by `veyra serve`.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// IndexerLogPath returns ~/.veyra/logs/indexer.log, the file read for the
// indexer log source. No veyra command writes to it; `veyra --debug index`
// logs to DefaultLogPath.
func IndexerLogPath() string {
	return filepath.Join(DefaultLogDir(), "indexer.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceGo is the MCP server logs (default).
	LogSourceGo LogSource = "go"
	// LogSourceIndexer is the indexer log file (indexer.log).
	LogSourceIndexer LogSource = "indexer"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.veyra/logs/server.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	// Try global path
	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run with --debug yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	// Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceGo:
		goPath := DefaultLogPath()
		checked = append(checked, goPath)
		if _, err := os.Stat(goPath); err == nil {
			paths = append(paths, goPath)
		}

	case LogSourceIndexer:
		indexerPath := IndexerLogPath()
		checked = append(checked, indexerPath)
		if _, err := os.Stat(indexerPath); err == nil {
			paths = append(paths, indexerPath)
		}

	case LogSourceAll:
		goPath := DefaultLogPath()
		indexerPath := IndexerLogPath()
		checked = append(checked, goPath, indexerPath)

		if _, err := os.Stat(goPath); err == nil {
			paths = append(paths, goPath)
		}
		if _, err := os.Stat(indexerPath); err == nil {
			paths = append(paths, indexerPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: go, indexer, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "indexer":
		return LogSourceIndexer
	case "all":
		return LogSourceAll
	default:
		return LogSourceGo
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceGo:
		return "To generate server logs:\n  veyra --debug serve"
	case LogSourceIndexer:
		return "No veyra command writes indexer logs.\n`veyra --debug index` logs to the server log (source: go)."
	case LogSourceAll:
		return "To generate logs:\n  serve: veyra --debug serve\n  index: veyra --debug index (written to the server log)"
	default:
		return ""
	}
}
