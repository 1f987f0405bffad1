// Package search implements semantic, keyword, and hybrid retrieval over
// a store.Adapter, plus the lexical reranker shared by both query modes.
package search

import "github.com/veyra-dev/veyra/internal/store"

// Hit is one ranked result, shared across semantic, keyword, and hybrid
// search.
type Hit struct {
	Fragment *store.Fragment
	Score    float32
}

// RerankOptions configures the post-search lexical boost.
type RerankOptions struct {
	// BoostFactor in (0, 1] scales how much an exact-substring match is
	// pulled toward a perfect score.
	BoostFactor float32
}

// Options configures a Semantic or Keyword call.
type Options struct {
	K          int
	SourceType string
	Rerank     *RerankOptions
}

// HybridOptions configures a Hybrid call.
type HybridOptions struct {
	K          int
	// KeywordWeight in [0,1] weighs the keyword side of the fusion
	// formula (1-kw)*semantic + kw*keyword.
	KeywordWeight float32
	SourceType    string
	Rerank        *RerankOptions
}

const defaultK = 10
