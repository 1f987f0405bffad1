// Package cmd provides the CLI commands for veyra.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/veyra-dev/veyra/internal/logging"
	"github.com/veyra-dev/veyra/pkg/version"
)

// Debug logging flag, shared across the PersistentPreRunE/PostRunE hooks.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the veyra CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "veyra",
		Short: "Local-first semantic search over your codebase and docs",
		Long: `veyra indexes local files, URLs, and GitHub references into a hybrid
(keyword + semantic) search index and exposes it to AI coding assistants
over the Model Context Protocol, or directly from the command line.

It runs entirely on your machine; embeddings are generated by a local
Ollama model by default.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("veyra version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.veyra/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging to a rotating file when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))

	return nil
}

// stopLogging flushes and closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
