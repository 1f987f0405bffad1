package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veyra-dev/veyra/internal/config"
	"github.com/veyra-dev/veyra/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit         int
	sourceType    string
	mode          string // "hybrid", "semantic", "keyword"
	format        string // "text", "json"
	keywordWeight float64
	offline       bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus",
		Long: `Search the indexed corpus using hybrid (keyword + semantic) search.

Examples:
  veyra search "authentication middleware"
  veyra search "handleRequest" --type file --limit 5
  veyra search "error handling" --mode semantic --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.sourceType, "type", "t", "", "Filter by source type")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: hybrid, semantic, keyword")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().Float64Var(&opts.keywordWeight, "keyword-weight", 0, "Override the keyword-side weight for hybrid mode")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root = "."
	}

	cfg, err := config.Load(root)
	if err != nil {
		return wrapConfigError(fmt.Errorf("failed to load configuration: %w", err))
	}

	p, err := buildPipeline(ctx, cfg, opts.offline)
	if err != nil {
		return fmt.Errorf("failed to build search pipeline: %w", err)
	}
	defer p.Close()

	keywordWeight := float32(cfg.Search.KeywordWeight)
	if opts.keywordWeight > 0 {
		keywordWeight = float32(opts.keywordWeight)
	}

	var rerank *search.RerankOptions
	if cfg.Search.RerankBoostFactor > 0 {
		rerank = &search.RerankOptions{BoostFactor: float32(cfg.Search.RerankBoostFactor)}
	}

	var hits []search.Hit
	switch opts.mode {
	case "semantic":
		hits, err = p.Engine.Semantic(ctx, query, search.Options{K: opts.limit, SourceType: opts.sourceType, Rerank: rerank})
	case "keyword":
		hits, err = p.Engine.Keyword(ctx, query, search.Options{K: opts.limit, SourceType: opts.sourceType, Rerank: rerank})
	default:
		hits, err = p.Engine.Hybrid(ctx, query, search.HybridOptions{
			K:             opts.limit,
			KeywordWeight: keywordWeight,
			SourceType:    opts.sourceType,
			Rerank:        rerank,
		})
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		return printSearchResultsJSON(cmd, hits)
	}
	return printSearchResultsText(cmd, query, hits)
}

type searchResultJSON struct {
	FragmentID string  `json:"fragment_id"`
	SourceID   string  `json:"source_id"`
	SourceType string  `json:"source_type"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Score      float32 `json:"score"`
	Snippet    string  `json:"snippet"`
}

func printSearchResultsJSON(cmd *cobra.Command, hits []search.Hit) error {
	results := make([]searchResultJSON, 0, len(hits))
	for _, h := range hits {
		if h.Fragment == nil {
			continue
		}
		results = append(results, searchResultJSON{
			FragmentID: h.Fragment.ID,
			SourceID:   h.Fragment.SourceID,
			SourceType: h.Fragment.SourceType,
			Title:      h.Fragment.Title,
			URL:        h.Fragment.URL,
			Score:      h.Score,
			Snippet:    snippet(h.Fragment.Content),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func printSearchResultsText(cmd *cobra.Command, query string, hits []search.Hit) error {
	out := cmd.OutOrStdout()

	if len(hits) == 0 {
		_, err := fmt.Fprintf(out, "No results for %q\n", query)
		return err
	}

	for i, h := range hits {
		if h.Fragment == nil {
			continue
		}
		title := h.Fragment.Title
		if title == "" {
			title = h.Fragment.SourceID
		}
		if _, err := fmt.Fprintf(out, "%d. [%.3f] %s (%s)\n", i+1, h.Score, title, h.Fragment.SourceType); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "   %s\n", snippet(h.Fragment.Content)); err != nil {
			return err
		}
	}

	return nil
}

// snippet trims a fragment's content to a single-line preview.
func snippet(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	const maxLen = 160
	if len(content) > maxLen {
		return content[:maxLen] + "..."
	}
	return content
}
