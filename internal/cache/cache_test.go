package cache_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyra-dev/veyra/internal/cache"
)

func TestCache_Record_PersistsJSONAndMarkdownMirrors(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.Open(dir, 10)
	require.NoError(t, err)

	require.NoError(t, c.Record("how does chunking work", "hybrid", "3 hits, top score 0.81", time.Unix(1700000000, 0).UTC()))

	jsonData, err := os.ReadFile(filepath.Join(dir, "queries.json"))
	require.NoError(t, err)
	var parsed struct {
		Version string `json:"version"`
		Queries []struct {
			Query string `json:"query"`
		} `json:"queries"`
	}
	require.NoError(t, json.Unmarshal(jsonData, &parsed))
	assert.Equal(t, "1.0.0", parsed.Version)
	require.Len(t, parsed.Queries, 1)
	assert.Equal(t, "how does chunking work", parsed.Queries[0].Query)

	mdData, err := os.ReadFile(filepath.Join(dir, "queries.md"))
	require.NoError(t, err)
	assert.Contains(t, string(mdData), "how does chunking work")
	assert.Contains(t, string(mdData), "hybrid")
}

func TestCache_Open_LoadsExistingQueriesFile(t *testing.T) {
	dir := t.TempDir()
	c1, err := cache.Open(dir, 10)
	require.NoError(t, err)
	require.NoError(t, c1.Record("query one", "semantic", "summary one", time.Now()))

	c2, err := cache.Open(dir, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Len())
}

func TestCache_EvictsLeastRecentlyUsedBeyondSize(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.Open(dir, 2)
	require.NoError(t, err)

	require.NoError(t, c.Record("a", "semantic", "a summary", time.Now()))
	require.NoError(t, c.Record("b", "semantic", "b summary", time.Now()))
	require.NoError(t, c.Record("c", "semantic", "c summary", time.Now()))

	queries := c.List()
	require.Len(t, queries, 2)
	var texts []string
	for _, q := range queries {
		texts = append(texts, q.Query)
	}
	assert.NotContains(t, texts, "a")
	assert.Contains(t, texts, "c")
}

func TestCache_EmptyRoot_DoesNotPersist(t *testing.T) {
	c, err := cache.Open("", 10)
	require.NoError(t, err)
	require.NoError(t, c.Record("ephemeral", "keyword", "summary", time.Now()))
	assert.Equal(t, 1, c.Len())
}
