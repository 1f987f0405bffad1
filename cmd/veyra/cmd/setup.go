package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/veyra-dev/veyra/internal/cache"
	"github.com/veyra-dev/veyra/internal/config"
	"github.com/veyra-dev/veyra/internal/embed"
	"github.com/veyra-dev/veyra/internal/fulltext"
	"github.com/veyra-dev/veyra/internal/indexer"
	"github.com/veyra-dev/veyra/internal/query"
	"github.com/veyra-dev/veyra/internal/search"
	"github.com/veyra-dev/veyra/internal/store"
	"github.com/veyra-dev/veyra/internal/store/columnar"
	"github.com/veyra-dev/veyra/internal/store/memstore"
	"github.com/veyra-dev/veyra/internal/store/sqlitepure"
	"github.com/veyra-dev/veyra/internal/store/sqlitevec"
)

// pipeline bundles the fully wired components every command that touches
// the index needs: an Indexer for writes, an Engine for reads, and an
// Orchestrator for the multi-stage agent chain.
type pipeline struct {
	Adapter  store.Adapter
	Embedder embed.Embedder
	Fulltext *fulltext.Index

	Indexer      *indexer.Indexer
	Engine       *search.Engine
	Orchestrator *query.Orchestrator

	close func() error
}

// Close releases the fulltext index, adapter, and embedder, in that order.
func (p *pipeline) Close() error {
	if p.close != nil {
		return p.close()
	}
	return nil
}

// buildPipeline wires the configured store backend, embedder, and
// fulltext accelerator from cfg. offline forces the static embedder,
// bypassing Ollama.
func buildPipeline(ctx context.Context, cfg *config.Config, offline bool) (*pipeline, error) {
	var embedder embed.Embedder
	var err error
	if offline {
		embedder, err = embed.NewEmbedder(ctx, embed.ProviderStatic, cfg.Embeddings.Model)
	} else {
		embedder, err = embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder initialization failed: %w", err)
	}

	dims := cfg.Embeddings.Dimensions
	if dims == 0 {
		dims = embedder.Dimensions()
	}

	primitives, err := buildPrimitives(cfg, dims)
	if err != nil {
		return nil, err
	}

	adapter := store.NewBaseAdapter(primitives)
	if err := adapter.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	ftPath := ""
	if cfg.Store.Path != "" && cfg.Store.Backend != "memstore" {
		ftPath = cfg.Store.Path + ".bleve"
	}
	ft, err := fulltext.Open(ftPath)
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to open fulltext index: %w", err)
	}

	httpClient := http.DefaultClient

	ix := &indexer.Indexer{
		Adapter:      adapter,
		Embedder:     embedder,
		Fulltext:     ft,
		HTTPClient:   httpClient,
		RepoFetcher:  indexer.NewGitHubFetcher(httpClient),
		GistFetcher:  indexer.NewGistFetcher(httpClient),
		ChunkSize:    cfg.Search.ChunkSize,
		ChunkOverlap: cfg.Search.ChunkOverlap,
		BatchSize:    cfg.Embeddings.BatchSize,
	}

	engine := &search.Engine{Adapter: adapter, Embedder: embedder, Fulltext: ft}

	var queryCache *cache.Cache
	if cfg.Cache.Root != "" {
		queryCache, err = cache.Open(cfg.Cache.Root, cfg.Cache.Size)
		if err != nil {
			_ = ft.Close()
			_ = adapter.Close()
			return nil, fmt.Errorf("failed to open query cache: %w", err)
		}
	}

	orchestrator := &query.Orchestrator{Engine: engine, Cache: queryCache}

	return &pipeline{
		Adapter:      adapter,
		Embedder:     embedder,
		Fulltext:     ft,
		Indexer:      ix,
		Engine:       engine,
		Orchestrator: orchestrator,
		close: func() error {
			_ = ft.Close()
			_ = adapter.Close()
			_ = embedder.Close()
			return nil
		},
	}, nil
}

// buildPrimitives selects the store.Primitives implementation named by
// cfg.Store.Backend.
func buildPrimitives(cfg *config.Config, dims int) (store.Primitives, error) {
	switch cfg.Store.Backend {
	case "", "sqlitevec":
		return sqlitevec.New(cfg.Store.Path, dims), nil
	case "sqlitepure":
		return sqlitepure.New(cfg.Store.Path, dims), nil
	case "columnar":
		return columnar.New(columnar.Options{
			Path:       cfg.Store.Path,
			Dimensions: dims,
			EnableHNSW: cfg.Store.EnableHNSW,
			Metric:     cfg.Store.Metric,
		}), nil
	case "memstore":
		return memstore.New(dims), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
