package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra-dev/veyra/internal/store"
	"github.com/veyra-dev/veyra/internal/store/memstore"
)

func TestMemstore_New_SetsBackendAndDimensions(t *testing.T) {
	p := memstore.New(8)
	assert.Equal(t, "memstore", p.Backend)
	assert.Equal(t, 8, p.Dimensions)
}

func TestMemstore_StoreAndRetrieveDocument_RoundTrips(t *testing.T) {
	p := memstore.New(4)
	ctx := context.Background()

	frag := &store.Fragment{ID: "f1", SourceID: "s1", Content: "hello", Embedding: []float32{1, 2, 3, 4}}
	require.NoError(t, p.StoreDocument(ctx, frag))

	got, err := p.RetrieveDocument(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, []float32{1, 2, 3, 4}, got.Embedding)
}

func TestMemstore_RetrieveDocument_MissingReturnsNilNotError(t *testing.T) {
	p := memstore.New(4)
	got, err := p.RetrieveDocument(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemstore_RemoveDocument_DropsEntry(t *testing.T) {
	p := memstore.New(4)
	ctx := context.Background()
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "f1", Content: "x"}))
	require.NoError(t, p.RemoveDocument(ctx, "f1"))

	got, err := p.RetrieveDocument(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemstore_SearchSimilar_RanksByCosineDistance(t *testing.T) {
	p := memstore.New(3)
	ctx := context.Background()
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "same", Embedding: []float32{1, 0, 0}}))
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "orth", Embedding: []float32{0, 1, 0}}))
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "opp", Embedding: []float32{-1, 0, 0}}))

	results, err := p.SearchSimilar(ctx, []float32{1, 0, 0}, store.SearchOptions{K: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "same", results[0].Fragment.ID)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
	assert.Equal(t, "opp", results[2].Fragment.ID)
	assert.InDelta(t, 0.0, results[2].Score, 0.0001)
}

func TestMemstore_SearchSimilar_SkipsFragmentsWithoutEmbeddings(t *testing.T) {
	p := memstore.New(3)
	ctx := context.Background()
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "no-vec"}))
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "has-vec", Embedding: []float32{1, 0, 0}}))

	results, err := p.SearchSimilar(ctx, []float32{1, 0, 0}, store.SearchOptions{K: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "has-vec", results[0].Fragment.ID)
}

func TestMemstore_CountDocuments_AppliesFilter(t *testing.T) {
	p := memstore.New(3)
	ctx := context.Background()
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "a", SourceID: "s1"}))
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "b", SourceID: "s2"}))

	n, err := p.CountDocuments(ctx, map[string]string{"sourceId": "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemstore_ListDocuments_OrdersBySourceThenChunkIndex(t *testing.T) {
	p := memstore.New(3)
	ctx := context.Background()
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "a", SourceID: "s1", ChunkIndex: 1}))
	require.NoError(t, p.StoreDocument(ctx, &store.Fragment{ID: "b", SourceID: "s1", ChunkIndex: 0}))

	frags, err := p.ListDocuments(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "b", frags[0].ID)
	assert.Equal(t, "a", frags[1].ID)
}

func TestMemstore_SourceLifecycle(t *testing.T) {
	p := memstore.New(3)
	ctx := context.Background()

	src := &store.Source{SourceID: "s1", Title: "doc"}
	require.NoError(t, p.UpsertSource(ctx, src))

	got, err := p.GetSource(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc", got.Title)

	require.NoError(t, p.DeleteSource(ctx, "s1"))
	got, err = p.GetSource(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
