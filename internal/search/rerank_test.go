package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veyra-dev/veyra/internal/search"
	"github.com/veyra-dev/veyra/internal/store"
)

func hit(id, content string, score float32) search.Hit {
	return search.Hit{Fragment: &store.Fragment{ID: id, Content: content}, Score: score}
}

func TestRerank_BoostsSubstringMatchAboveNonMatch(t *testing.T) {
	hits := []search.Hit{
		hit("a", "unrelated content", 0.6),
		hit("b", "this mentions the exact phrase needle query", 0.4),
	}

	out := search.Rerank("needle query", hits, search.RerankOptions{BoostFactor: 0.5})

	assert.Equal(t, "b", out[0].Fragment.ID)
	assert.Greater(t, out[0].Score, float32(0.4))
}

func TestRerank_IsCaseInsensitive(t *testing.T) {
	hits := []search.Hit{hit("a", "Some NEEDLE Query text", 0.1)}
	out := search.Rerank("needle query", hits, search.RerankOptions{BoostFactor: 1})
	assert.Greater(t, out[0].Score, float32(0.1))
}

func TestRerank_NeverExceedsOne(t *testing.T) {
	hits := []search.Hit{hit("a", "matches the needle query exactly", 0.95)}
	out := search.Rerank("needle query", hits, search.RerankOptions{BoostFactor: 1})
	assert.LessOrEqual(t, out[0].Score, float32(1.0))
}

func TestRerank_UnboostedHitsKeepStableOrder(t *testing.T) {
	hits := []search.Hit{
		hit("a", "no match here", 0.5),
		hit("b", "also no match", 0.5),
	}
	out := search.Rerank("absent term", hits, search.RerankOptions{BoostFactor: 0.5})
	assert.Equal(t, "a", out[0].Fragment.ID)
	assert.Equal(t, "b", out[1].Fragment.ID)
}

func TestRerank_ZeroBoostFactorIsNoOp(t *testing.T) {
	hits := []search.Hit{hit("a", "contains needle", 0.2)}
	out := search.Rerank("needle", hits, search.RerankOptions{BoostFactor: 0})
	assert.Equal(t, float32(0.2), out[0].Score)
}

func TestRerank_MonotoneAgainstSecondPass(t *testing.T) {
	hits := []search.Hit{
		hit("a", "contains the needle phrase", 0.3),
		hit("b", "does not contain it", 0.5),
	}
	first := search.Rerank("needle phrase", hits, search.RerankOptions{BoostFactor: 0.4})
	firstRank := indexOf(first, "a")

	second := search.Rerank("needle phrase", first, search.RerankOptions{BoostFactor: 0.4})
	secondRank := indexOf(second, "a")

	assert.LessOrEqual(t, secondRank, firstRank)
}

func indexOf(hits []search.Hit, id string) int {
	for i, h := range hits {
		if h.Fragment.ID == id {
			return i
		}
	}
	return -1
}
