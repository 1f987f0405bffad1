// Package query implements the multi-stage search chain and the
// agent-facing query orchestrator built on top of it: pagination,
// quality scoring, query-cache persistence, and structured knowledge
// artifacts.
package query

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/veyra-dev/veyra/internal/search"
	"github.com/veyra-dev/veyra/internal/store"
)

// Stage is one step of a Chain: a query string, its retrieval mode, and
// an optional post-retrieval hook.
type Stage struct {
	Query       string
	Hybrid      bool
	K           int
	Rerank      *search.RerankOptions
	SourceType  string
	Description string

	// Transform, if set, runs on this stage's hits before they're merged
	// into the chain's combined result (e.g. a caller-supplied filter or
	// boost pass).
	Transform func([]search.Hit) []search.Hit
}

// StageResult is one stage's hits alongside the stage that produced them.
type StageResult struct {
	Stage Stage
	Hits  []search.Hit
}

// ChainResult is the output of running a Chain: per-stage hits plus the
// deduped, globally sorted combination.
type ChainResult struct {
	Stages          []StageResult
	CombinedResults []search.Hit
	Topic           string
	Timestamp       time.Time
}

// defaultHybridKeywordWeight is used for chain stages, since a Stage's
// hybrid flag carries no keywordWeight of its own.
const defaultHybridKeywordWeight = 0.5

// RunChain executes stages serially against engine, collecting hits from
// every stage, deduping by (sourceId, chunkIndex) while keeping the max
// score, and sorting the combination descending. A stage search failure
// aborts the chain and returns the partial result built so far alongside
// the error; a context cancellation observed between stages does the
// same, so a caller enforcing a deadline (AgentQuery) can inspect both.
func RunChain(ctx context.Context, engine *search.Engine, topic string, stages []Stage) (*ChainResult, error) {
	result := &ChainResult{Topic: topic, Timestamp: time.Now()}

	seen := make(map[string]int)
	var combined []search.Hit

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hits, err := runStage(ctx, engine, stage)
		if err != nil {
			return result, err
		}
		if stage.Transform != nil {
			hits = stage.Transform(hits)
		}
		result.Stages = append(result.Stages, StageResult{Stage: stage, Hits: hits})

		for _, h := range hits {
			key := fragmentKey(h.Fragment)
			if idx, ok := seen[key]; ok {
				if h.Score > combined[idx].Score {
					combined[idx] = h
				}
				continue
			}
			seen[key] = len(combined)
			combined = append(combined, h)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Score > combined[j].Score })
	result.CombinedResults = combined
	return result, nil
}

func runStage(ctx context.Context, engine *search.Engine, stage Stage) ([]search.Hit, error) {
	if stage.Hybrid {
		return engine.Hybrid(ctx, stage.Query, search.HybridOptions{
			K:             stage.K,
			KeywordWeight: defaultHybridKeywordWeight,
			SourceType:    stage.SourceType,
			Rerank:        stage.Rerank,
		})
	}
	return engine.Semantic(ctx, stage.Query, search.Options{
		K:          stage.K,
		SourceType: stage.SourceType,
		Rerank:     stage.Rerank,
	})
}

func fragmentKey(f *store.Fragment) string {
	return f.SourceID + "#" + strconv.Itoa(f.ChunkIndex)
}

// AgentChain is the built-in three-stage chain used by AgentQuery:
// a direct semantic pass, then two progressively broader hybrid passes.
func AgentChain(query string) []Stage {
	return []Stage{
		{
			Query:       query,
			K:           5,
			Description: "direct semantic search",
		},
		{
			Query:       query + " implementation architecture design pattern structure",
			Hybrid:      true,
			K:           5,
			Description: "hybrid implementation-detail search",
		},
		{
			Query:       `related to "` + query + `" OR similar OR alternative approaches`,
			Hybrid:      true,
			K:           3,
			Description: "hybrid related-approaches search",
		},
	}
}
