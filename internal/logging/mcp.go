package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for `veyra serve`'s stdio transport,
// where stdout carries JSON-RPC exclusively: any other write to stdout or
// stderr corrupts the protocol stream and the connecting client sees a
// "Failed to connect" error. This routes every log record to the log
// file only, at debug level for full diagnostics.
func SetupMCPMode() (func(), error) {
	return SetupMCPModeWithLevel("debug")
}

// SetupMCPModeWithLevel is SetupMCPMode with an explicit level, for
// callers that don't want full debug diagnostics in the MCP log file.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false, // stdio transport: stdout/stderr are off-limits
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}
