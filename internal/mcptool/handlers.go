package mcptool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/veyra-dev/veyra/internal/indexer"
	"github.com/veyra-dev/veyra/internal/query"
	"github.com/veyra-dev/veyra/internal/search"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// searchHandler is the MCP SDK handler for the search tool.
func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := defaultSearchLimit
	if input.Limit > 0 {
		limit = input.Limit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var hits []search.Hit
	var err error

	switch input.Mode {
	case "semantic":
		hits, err = s.engine.Semantic(ctx, input.Query, search.Options{
			K:          limit,
			SourceType: input.SourceType,
		})
	case "keyword":
		hits, err = s.engine.Keyword(ctx, input.Query, search.Options{
			K:          limit,
			SourceType: input.SourceType,
		})
	default:
		kw := float32(s.config.Search.KeywordWeight)
		if input.KeywordWeight > 0 {
			kw = float32(input.KeywordWeight)
		}
		hits, err = s.engine.Hybrid(ctx, input.Query, search.HybridOptions{
			K:             limit,
			KeywordWeight: kw,
			SourceType:    input.SourceType,
		})
	}
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	return nil, SearchOutput{Results: toSearchHitOutputs(hits)}, nil
}

// indexHandler is the MCP SDK handler for the index tool.
func (s *Server) indexHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (
	*mcp.CallToolResult,
	IndexOutput,
	error,
) {
	if input.Type == "" {
		return nil, IndexOutput{}, NewInvalidParamsError("type parameter is required")
	}

	spec := indexer.Spec{
		Type:     indexer.SourceType(input.Type),
		Text:     input.Text,
		Title:    input.Title,
		Path:     input.Path,
		URL:      input.URL,
		Owner:    input.Owner,
		Repo:     input.Repo,
		Ref:      input.Ref,
		FilePath: input.FilePath,
		GistID:   input.GistID,
	}

	result, err := s.indexer.Index(ctx, spec, nil)
	if err != nil {
		return nil, IndexOutput{}, MapError(err)
	}

	out := IndexOutput{
		ItemsIndexed:  result.ItemsIndexed,
		ChunksCreated: result.ChunksCreated,
		SourceIDs:     result.SourceIDs,
	}
	for _, e := range result.Errors {
		out.Errors = append(out.Errors, e.Error())
	}

	return nil, out, nil
}

// getSectionHandler is the MCP SDK handler for the get_section tool.
func (s *Server) getSectionHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetSectionInput) (
	*mcp.CallToolResult,
	GetSectionOutput,
	error,
) {
	if input.FragmentID == "" {
		return nil, GetSectionOutput{}, NewInvalidParamsError("fragment_id parameter is required")
	}

	fragment, err := s.indexer.Adapter.Get(ctx, input.FragmentID)
	if err != nil {
		return nil, GetSectionOutput{}, MapError(err)
	}

	var content string
	if input.Full {
		content = s.reconstructor.GetOriginalContent(ctx, fragment)
	} else {
		content = s.reconstructor.GetSectionContent(ctx, fragment)
	}

	return nil, GetSectionOutput{Content: content}, nil
}

// agentQueryHandler is the MCP SDK handler for the agent_query tool.
func (s *Server) agentQueryHandler(ctx context.Context, _ *mcp.CallToolRequest, input AgentQueryInput) (
	*mcp.CallToolResult,
	AgentQueryOutput,
	error,
) {
	if input.Query == "" {
		return nil, AgentQueryOutput{}, NewInvalidParamsError("query parameter is required")
	}

	mode := query.ModeSummary
	switch input.Mode {
	case "detailed":
		mode = query.ModeDetailed
	case "full":
		mode = query.ModeFull
	}

	resp, err := s.orchestrator.AgentQuery(ctx, query.AgentQueryRequest{
		Goal:           input.Goal,
		Query:          input.Query,
		Mode:           mode,
		Cursor:         input.Cursor,
		PageSize:       input.PageSize,
		TimeoutSeconds: input.TimeoutSeconds,
	})
	if err != nil {
		return nil, AgentQueryOutput{}, MapError(err)
	}

	return nil, AgentQueryOutput{
		TotalResults:    resp.TotalResults,
		AvgScore:        resp.AvgScore,
		QualityLevel:    string(resp.QualityLevel),
		MainTopics:      resp.MainTopics,
		CoverageStatus:  string(resp.CoverageStatus),
		PrimaryAction:   resp.PrimaryAction,
		EstimatedTokens: resp.EstimatedTokens,
		Hits:            toSearchHitOutputs(resp.Hits),
		StrategicHints:  resp.StrategicHints,
		NextCursor:      resp.NextCursor,
		Status:          resp.Status,
	}, nil
}

// toSearchHitOutputs converts search.Hit values to their JSON-serializable
// wire form. Fragments without a boundary span leave BoundaryType/Title
// empty.
func toSearchHitOutputs(hits []search.Hit) []SearchHitOutput {
	out := make([]SearchHitOutput, 0, len(hits))
	for _, h := range hits {
		if h.Fragment == nil {
			continue
		}
		o := SearchHitOutput{
			FragmentID: h.Fragment.ID,
			SourceID:   h.Fragment.SourceID,
			Content:    h.Fragment.Content,
			Score:      h.Score,
			SourceType: h.Fragment.SourceType,
			Title:      h.Fragment.Title,
			URL:        h.Fragment.URL,
		}
		if h.Fragment.Boundary != nil {
			o.BoundaryType = string(h.Fragment.Boundary.Type)
			o.BoundaryTitle = h.Fragment.Boundary.Title
		}
		out = append(out, o)
	}
	return out
}
