package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/veyra-dev/veyra/internal/config"
	"github.com/veyra-dev/veyra/internal/logging"
	"github.com/veyra-dev/veyra/internal/mcptool"
)

// newServeCmd creates the serve command, which starts the MCP server.
func newServeCmd() *cobra.Command {
	var transport string
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server so AI coding assistants like
Claude Code and Cursor can search and index through this project.

The stdio transport requires stdin to be a pipe, not a terminal: it is
driven entirely by the connecting client, never run interactively.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport, offline)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve on: stdio or sse")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

// runServe wires the search pipeline and blocks serving the given
// transport until ctx is cancelled or the client disconnects.
//
// The MCP protocol reserves stdout exclusively for JSON-RPC messages:
// nothing here may write to stdout before or during Serve.
func runServe(ctx context.Context, transport string, offline bool) error {
	if transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			return err
		}
	}

	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("failed to setup MCP-safe logging: %w", err)
	}
	defer cleanup()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return wrapConfigError(fmt.Errorf("failed to load configuration: %w", err))
	}

	p, err := buildPipeline(ctx, cfg, offline)
	if err != nil {
		return fmt.Errorf("failed to build search pipeline: %w", err)
	}
	defer p.Close()

	server, err := mcptool.NewServer(p.Engine, p.Indexer, p.Orchestrator, cfg)
	if err != nil {
		return fmt.Errorf("failed to construct MCP server: %w", err)
	}

	return server.Serve(ctx, transport)
}

// verifyStdinForMCP rejects an interactive terminal on stdin: the MCP
// stdio transport is driven entirely by the connecting client and never
// produces useful output when run by hand.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal, not a pipe: veyra serve is meant to be launched by an MCP client, not run interactively")
	}
	return nil
}
