package fulltext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra-dev/veyra/internal/fulltext"
)

func newIndex(t *testing.T) *fulltext.Index {
	t.Helper()
	ix, err := fulltext.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestIndex_UpsertAndCandidates_FindsMatchingDocument(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.UpsertBatch(ctx, []fulltext.Document{
		{ID: "a", Content: "the quick brown fox jumps over the lazy dog"},
		{ID: "b", Content: "completely unrelated text about oceans"},
	}))

	ids, err := ix.Candidates(ctx, "quick fox", 10)
	require.NoError(t, err)
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b")
}

func TestIndex_Candidates_RespectsLimit(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	docs := make([]fulltext.Document, 0, 5)
	for i := 0; i < 5; i++ {
		docs = append(docs, fulltext.Document{ID: string(rune('a' + i)), Content: "shared keyword token"})
	}
	require.NoError(t, ix.UpsertBatch(ctx, docs))

	ids, err := ix.Candidates(ctx, "shared keyword", 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestIndex_Candidates_EmptyQueryReturnsNothing(t *testing.T) {
	ix := newIndex(t)
	ids, err := ix.Candidates(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestIndex_Delete_RemovesDocumentFromCandidates(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, fulltext.Document{ID: "a", Content: "banana bread recipe"}))
	require.NoError(t, ix.Delete(ctx, "a"))

	ids, err := ix.Candidates(ctx, "banana bread", 10)
	require.NoError(t, err)
	assert.NotContains(t, ids, "a")
}

func TestIndex_Count_ReflectsIndexedDocuments(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.UpsertBatch(ctx, []fulltext.Document{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
	}))

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestIndex_Close_IsIdempotent(t *testing.T) {
	ix, err := fulltext.Open("")
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
}
