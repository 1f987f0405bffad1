// Package cache maintains the bounded, file-backed cache of successful
// queries described by the query orchestrator's "cached query" entity: the
// most recent N queries, evicted LRU, mirrored to disk as both a machine-
// readable queries.json and a human-readable queries.md.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the default number of cached queries retained (spec N=100).
const DefaultSize = 100

// fileVersion is written into queries.json so a future format change can be
// detected on load.
const fileVersion = "1.0.0"

// CachedQuery is one successful query observation.
type CachedQuery struct {
	Query     string    `json:"query"`
	Strategy  string    `json:"strategy"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// queriesFile is the on-disk shape of queries.json.
type queriesFile struct {
	Version string        `json:"version"`
	Queries []CachedQuery `json:"queries"`
}

// Cache is a bounded, LRU-evicted, disk-persisted query cache.
type Cache struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, CachedQuery]
	root string // cache root directory; "" disables persistence
}

// Open loads an existing cache from root/queries.json if present, or starts
// empty. An empty root disables persistence entirely (in-memory only, used
// by tests and the memstore-backed code paths).
func Open(root string, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, CachedQuery](size)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}
	c := &Cache{lru: l, root: root}

	if root == "" {
		return c, nil
	}

	data, err := os.ReadFile(c.jsonPath())
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", c.jsonPath(), err)
	}

	var file queriesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cache: parse %s: %w", c.jsonPath(), err)
	}
	for _, q := range file.Queries {
		c.lru.Add(q.Query, q)
	}
	return c, nil
}

func (c *Cache) jsonPath() string { return filepath.Join(c.root, "queries.json") }
func (c *Cache) mdPath() string   { return filepath.Join(c.root, "queries.md") }

// Record appends a successful query observation, evicting the least
// recently used entry if the cache is full, then persists both mirrors.
func (c *Cache) Record(query, strategy, summary string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(query, CachedQuery{Query: query, Strategy: strategy, Summary: summary, Timestamp: at})
	return c.persist()
}

// List returns all cached queries, most recently used last.
func (c *Cache) List() []CachedQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.lru.Keys()
	out := make([]CachedQuery, 0, len(keys))
	for _, k := range keys {
		if q, ok := c.lru.Peek(k); ok {
			out = append(out, q)
		}
	}
	return out
}

// Len reports the number of cached queries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// persist writes queries.json and regenerates queries.md. Must be called
// with c.mu held. A no-op when the cache has no root (in-memory mode).
func (c *Cache) persist() error {
	if c.root == "" {
		return nil
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("cache: create %s: %w", c.root, err)
	}

	keys := c.lru.Keys()
	queries := make([]CachedQuery, 0, len(keys))
	for _, k := range keys {
		if q, ok := c.lru.Peek(k); ok {
			queries = append(queries, q)
		}
	}

	file := queriesFile{Version: fileVersion, Queries: queries}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal queries.json: %w", err)
	}
	if err := os.WriteFile(c.jsonPath(), data, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", c.jsonPath(), err)
	}

	return os.WriteFile(c.mdPath(), []byte(renderMarkdown(queries)), 0o644)
}

// renderMarkdown produces the human-readable queries.md mirror, most
// recent query first.
func renderMarkdown(queries []CachedQuery) string {
	var b strings.Builder
	b.WriteString("# Cached queries\n\n")
	if len(queries) == 0 {
		b.WriteString("_no cached queries yet_\n")
		return b.String()
	}

	for i := len(queries) - 1; i >= 0; i-- {
		q := queries[i]
		fmt.Fprintf(&b, "## %s\n\n", q.Query)
		fmt.Fprintf(&b, "- strategy: `%s`\n", q.Strategy)
		fmt.Fprintf(&b, "- observed: %s\n\n", q.Timestamp.Format(time.RFC3339))
		b.WriteString(q.Summary)
		b.WriteString("\n\n")
	}
	return b.String()
}
