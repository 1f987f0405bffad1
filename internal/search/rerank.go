package search

import (
	"sort"
	"strings"
)

// Rerank boosts any hit whose fragment content contains query as a
// case-insensitive substring, then re-sorts descending by score. Boosted
// hits move strictly toward 1.0 but never past it; unboosted hits keep
// their relative order (sort.SliceStable), satisfying the monotone
// invariant that a substring match never ranks lower after reranking.
func Rerank(query string, hits []Hit, opts RerankOptions) []Hit {
	if opts.BoostFactor <= 0 || len(hits) == 0 {
		return hits
	}
	needle := strings.ToLower(query)
	out := make([]Hit, len(hits))
	copy(out, hits)

	for i := range out {
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(out[i].Fragment.Content), needle) {
			out[i].Score += opts.BoostFactor * (1 - out[i].Score)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
