// Package fulltext accelerates keyword-search candidate generation with a
// bleve index kept in sync with a vector-store adapter. It is a postings-
// list lookup only: bleve's own relevance score is discarded, since the
// search engine computes its own TF/length-normalized score over whatever
// candidates this package returns.
package fulltext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Document is the minimal unit fulltext indexes: a fragment id and the text
// to tokenize. Everything else about a fragment lives in the adapter.
type Document struct {
	ID      string
	Content string
}

// Index wraps a bleve index used purely for candidate generation.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Open creates or opens a bleve index at path. An empty path creates an
// in-memory index (used for the memstore/test backends, where there is no
// durable location to put one).
func Open(path string) (*Index, error) {
	indexMapping, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("fulltext: build mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("fulltext: create directory %s: %w", dir, mkErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorrupt(err) {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, fmt.Errorf("fulltext: index at %s corrupt and cannot remove: %w (original: %v)", path, rmErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fulltext: open index: %w", err)
	}

	return &Index{index: idx, path: path}, nil
}

func isCorrupt(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// contentField names the single indexed field; fulltext has no use for
// bleve's document-structure features beyond tokenizing one text blob.
const contentField = "content"

type bleveDoc struct {
	Content string `json:"content"`
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	return m, nil
}

// Upsert indexes or reindexes a single document.
func (ix *Index) Upsert(ctx context.Context, doc Document) error {
	return ix.UpsertBatch(ctx, []Document{doc})
}

// UpsertBatch indexes or reindexes many documents in one bleve batch, mirroring
// the adapter's own batch-insert path.
func (ix *Index) UpsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return fmt.Errorf("fulltext: index is closed")
	}

	batch := ix.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, bleveDoc{Content: doc.Content}); err != nil {
			return fmt.Errorf("fulltext: batch document %s: %w", doc.ID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("fulltext: execute batch: %w", err)
	}
	return nil
}

// Delete removes a document from the index. Deleting an id that isn't
// present is not an error, matching the adapter's own idempotent deletes.
func (ix *Index) Delete(ctx context.Context, id string) error {
	return ix.DeleteBatch(ctx, []string{id})
}

// DeleteBatch removes many documents in one bleve batch.
func (ix *Index) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return fmt.Errorf("fulltext: index is closed")
	}

	batch := ix.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("fulltext: execute delete batch: %w", err)
	}
	return nil
}

// Candidates returns up to limit fragment ids whose content matches query,
// in bleve's own relevance order. Callers must not treat this ordering as
// the final ranking: it exists only to shrink an O(n) table scan down to a
// pool the caller's own scoring function then ranks.
func (ix *Index) Candidates(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, fmt.Errorf("fulltext: index is closed")
	}

	q := bleve.NewMatchQuery(query)
	q.SetField(contentField)

	req := bleve.NewSearchRequest(q)
	req.Size = limit

	result, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fulltext: search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Count returns the number of documents currently indexed.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, fmt.Errorf("fulltext: index is closed")
	}
	return ix.index.DocCount()
}

// Close releases the underlying bleve index. Idempotent.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.index.Close()
}
