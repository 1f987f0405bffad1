package search

import (
	"context"
	"sort"

	"github.com/veyra-dev/veyra/internal/embed"
	"github.com/veyra-dev/veyra/internal/fulltext"
	"github.com/veyra-dev/veyra/internal/store"
	"github.com/veyra-dev/veyra/internal/verrors"
)

// Engine runs semantic, keyword, and hybrid search over an Adapter.
// Fulltext is an optional keyword-candidate accelerator; when nil,
// Keyword falls back to scanning Adapter.List directly.
type Engine struct {
	Adapter  store.Adapter
	Embedder embed.Embedder
	Fulltext *fulltext.Index

	// StopWords overrides DefaultStopWords when non-nil.
	StopWords map[string]struct{}
}

func (e *Engine) stopWords() map[string]struct{} {
	if e.StopWords != nil {
		return e.StopWords
	}
	return DefaultStopWords
}

func clampK(k int) int {
	if k <= 0 {
		return defaultK
	}
	return k
}

func searchFilter(sourceType string) map[string]string {
	if sourceType == "" {
		return nil
	}
	return map[string]string{"sourceType": sourceType}
}

func toHits(results []*store.SearchResult) []Hit {
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Fragment: r.Fragment, Score: r.Score}
	}
	return hits
}

// Semantic embeds query and returns its nearest fragments by vector
// distance, optionally reranked.
func (e *Engine) Semantic(ctx context.Context, query string, opts Options) ([]Hit, error) {
	vectors, err := e.Embedder.Embed(ctx, []string{query}, nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.Embedding, err)
	}
	if len(vectors) == 0 {
		return nil, verrors.New(verrors.Embedding, "embedder returned no vector for query", nil)
	}

	results, err := e.Adapter.Search(ctx, vectors[0], store.SearchOptions{
		K:      clampK(opts.K),
		Filter: searchFilter(opts.SourceType),
	})
	if err != nil {
		return nil, err
	}

	hits := toHits(results)
	if opts.Rerank != nil {
		hits = Rerank(query, hits, *opts.Rerank)
	}
	return hits, nil
}

// Keyword tokenizes query and scores candidate fragments by how much
// query vocabulary they contain, normalized by fragment length. When
// Fulltext is set it supplies the candidate set (bleve's own relevance
// score is discarded); otherwise every fragment matching SourceType is
// scored directly.
func (e *Engine) Keyword(ctx context.Context, query string, opts Options) ([]Hit, error) {
	queryTokens := tokenize(query, e.stopWords())
	if len(queryTokens) == 0 {
		return nil, nil
	}

	k := clampK(opts.K)

	fragments, err := e.keywordCandidates(ctx, query, opts.SourceType, k)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(fragments))
	for _, f := range fragments {
		score := keywordScore(queryTokens, tokenize(f.Content, e.stopWords()))
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Fragment: f, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if opts.Rerank != nil {
		hits = Rerank(query, hits, *opts.Rerank)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (e *Engine) keywordCandidates(ctx context.Context, query, sourceType string, k int) ([]*store.Fragment, error) {
	if e.Fulltext == nil {
		return e.Adapter.List(ctx, store.ListOptions{Filter: searchFilter(sourceType)})
	}

	ids, err := e.Fulltext.Candidates(ctx, query, k*4)
	if err != nil {
		return nil, verrors.Wrap(verrors.Internal, err)
	}

	fragments := make([]*store.Fragment, 0, len(ids))
	for _, id := range ids {
		f, err := e.Adapter.Get(ctx, id)
		if err != nil {
			continue
		}
		if sourceType != "" && f.SourceType != sourceType {
			continue
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// keywordScore is the fraction of a fragment's tokens that match the
// query's vocabulary: term frequency normalized by fragment length.
func keywordScore(queryTokens, contentTokens []string) float32 {
	if len(contentTokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(contentTokens))
	for _, t := range contentTokens {
		counts[t]++
	}
	var matched int
	for _, qt := range queryTokens {
		matched += counts[qt]
	}
	return float32(matched) / float32(len(contentTokens))
}

// Hybrid runs the fixed state machine Embed -> FanOut(semantic, keyword)
// -> Normalize -> Fuse -> Rerank? -> Truncate. Both sides fan out to 2k
// candidates before min-max normalization and are combined by
// (1-kw)*semantic + kw*keyword, deduped by fragment id keeping the max
// combined score. An empty keyword side skips normalization and leaves
// semantic scores unchanged (implicit kw=0).
func (e *Engine) Hybrid(ctx context.Context, query string, opts HybridOptions) ([]Hit, error) {
	k := clampK(opts.K)
	fanout := 2 * k

	semHits, err := e.Semantic(ctx, query, Options{K: fanout, SourceType: opts.SourceType})
	if err != nil {
		return nil, err
	}
	keyHits, err := e.Keyword(ctx, query, Options{K: fanout, SourceType: opts.SourceType})
	if err != nil {
		return nil, err
	}

	normSem := minMaxNormalize(semHits)
	normKey := minMaxNormalize(keyHits)

	kw := opts.KeywordWeight
	if len(keyHits) == 0 {
		// Nothing to fuse: keep the semantic scores as they came.
		normSem = semHits
		kw = 0
	}

	fragByID := make(map[string]*store.Fragment, len(normSem)+len(normKey))
	keyByID := make(map[string]float32, len(normKey))
	for _, h := range normKey {
		fragByID[h.Fragment.ID] = h.Fragment
		keyByID[h.Fragment.ID] = h.Score
	}

	fused := make(map[string]float32, len(normSem)+len(normKey))
	for _, h := range normSem {
		fragByID[h.Fragment.ID] = h.Fragment
		fused[h.Fragment.ID] = (1-kw)*h.Score + kw*keyByID[h.Fragment.ID]
	}
	for id, score := range keyByID {
		if _, ok := fused[id]; ok {
			continue
		}
		fused[id] = kw * score
	}

	hits := make([]Hit, 0, len(fused))
	for id, score := range fused {
		hits = append(hits, Hit{Fragment: fragByID[id], Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if opts.Rerank != nil {
		hits = Rerank(query, hits, *opts.Rerank)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
