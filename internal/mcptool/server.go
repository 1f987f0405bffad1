// Package mcptool implements the Model Context Protocol server that
// exposes veyra's retrieval pipeline to AI clients (Claude Code, Cursor,
// and similar agent hosts).
package mcptool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/veyra-dev/veyra/internal/config"
	"github.com/veyra-dev/veyra/internal/indexer"
	"github.com/veyra-dev/veyra/internal/query"
	"github.com/veyra-dev/veyra/internal/reconstruct"
	"github.com/veyra-dev/veyra/internal/search"
	"github.com/veyra-dev/veyra/pkg/version"
)

// Server is the MCP server bridging AI clients to the hybrid search
// engine, the indexer, and the agent query orchestrator.
type Server struct {
	mcp *mcp.Server

	engine        *search.Engine
	indexer       *indexer.Indexer
	reconstructor *reconstruct.Reconstructor
	orchestrator  *query.Orchestrator

	config *config.Config
	logger *slog.Logger

	mu sync.RWMutex
}

// NewServer creates a new MCP server. engine and ix are required;
// orchestrator may be nil, in which case the agent_query tool is not
// registered.
func NewServer(engine *search.Engine, ix *indexer.Indexer, orchestrator *query.Orchestrator, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if ix == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:        engine,
		indexer:       ix,
		reconstructor: &reconstruct.Reconstructor{Adapter: ix.Adapter},
		orchestrator:  orchestrator,
		config:        cfg,
		logger:        slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "veyra",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "veyra", version.Version
}

// registerTools registers search, index, get_section, and (when an
// orchestrator is configured) agent_query with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed corpus. Supports semantic, keyword, and hybrid retrieval modes, with optional source-type filtering. Use this for direct retrieval when you already know what you're looking for.",
	}, s.searchHandler)
	s.logger.Debug("registered tool", slog.String("name", "search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index",
		Description: "Add a source to the index: raw text, a local file, a glob over a directory tree, a URL, or a GitHub/gist reference. Returns how many chunks were created.",
	}, s.indexHandler)
	s.logger.Debug("registered tool", slog.String("name", "index"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_section",
		Description: "Given a fragment id returned by search, reconstruct the full structural section (markdown heading or code definition) it belongs to, stitched from sibling fragments.",
	}, s.getSectionHandler)
	s.logger.Debug("registered tool", slog.String("name", "get_section"))

	if s.orchestrator != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "agent_query",
			Description: "Run the built-in multi-stage agent search chain and return a response shaped for the given mode (summary, detailed, or full). Use this instead of search when exploring a broad goal rather than a single lookup.",
		}, s.agentQueryHandler)
		s.logger.Debug("registered tool", slog.String("name", "agent_query"))
	}

	s.logger.Info("MCP tools registered")
}

// Serve starts the server with the specified transport. stdio is the only
// transport the MCP protocol requires; sse is accepted by configuration
// but not yet implemented.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		s.logger.Debug("using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	case "sse":
		return fmt.Errorf("sse transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The MCP server itself has no handle to
// release; it stops when its context is cancelled.
func (s *Server) Close() error {
	return nil
}
