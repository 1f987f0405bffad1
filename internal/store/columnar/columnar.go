// Package columnar implements the store.Primitives contract against
// DuckDB (marcboeker/go-duckdb — named in SPEC_FULL.md, ungrounded: no
// DuckDB driver appears anywhere in the retrieved corpus, see DESIGN.md),
// a single `vectors` table per spec, with an optional coder/hnsw sidecar
// index (adapted from the teacher's internal/store/hnsw.go) kept in sync
// with inserts and deletes.
package columnar

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/veyra-dev/veyra/internal/store"
)

// connCache refcounts one physical connection per database path, per
// spec's "backend caches one physical connection per database path with
// reference counting" requirement.
var connCache = struct {
	mu      sync.Mutex
	entries map[string]*cachedConn
}{entries: make(map[string]*cachedConn)}

type cachedConn struct {
	db   *sql.DB
	refs int
}

func acquireConn(path string) (*sql.DB, error) {
	connCache.mu.Lock()
	defer connCache.mu.Unlock()

	if entry, ok := connCache.entries[path]; ok {
		entry.refs++
		return entry.db, nil
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	connCache.entries[path] = &cachedConn{db: db, refs: 1}
	return db, nil
}

func releaseConn(path string) error {
	connCache.mu.Lock()
	defer connCache.mu.Unlock()

	entry, ok := connCache.entries[path]
	if !ok {
		return nil
	}
	entry.refs--
	if entry.refs > 0 {
		return nil
	}
	delete(connCache.entries, path)
	return entry.db.Close()
}

// packedMeta is the JSON blob stored in vectors.metadata, carrying both
// the source-identity fields the base adapter needs and the caller's own
// Metadata map, since this backend has no separate sources table.
type packedMeta struct {
	SourceID        string            `json:"sourceId"`
	ChunkIndex      int               `json:"chunkIndex"`
	SourceType      string            `json:"sourceType,omitempty"`
	Title           string            `json:"title,omitempty"`
	URL             string            `json:"url,omitempty"`
	OriginalContent string            `json:"originalContent,omitempty"`
	User            map[string]string `json:"user,omitempty"`
}

type backend struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	dimensions int
	hnsw       *hnswSidecar // nil when enableHNSW is false or construction failed
}

// Options configures the columnar backend.
type Options struct {
	Path       string
	Dimensions int
	EnableHNSW bool
	Metric     string // not used by New: the HNSW sidecar always ranks by cosine distance
}

// New returns a store.Primitives backed by DuckDB. If opts.EnableHNSW is
// true, an in-memory coder/hnsw sidecar is built and kept in sync; if it
// fails to construct, the backend silently falls back to DuckDB's
// array_distance, per spec.
func New(opts Options) store.Primitives {
	b := &backend{path: opts.Path, dimensions: opts.Dimensions}
	if opts.EnableHNSW {
		b.hnsw = newHNSWSidecar(opts.Dimensions)
	}

	return store.Primitives{
		Backend:          "columnar",
		Dimensions:       opts.Dimensions,
		InitializeFn:     b.initialize,
		CloseFn:          b.close,
		StoreDocument:    b.storeDocument,
		RetrieveDocument: b.retrieveDocument,
		RemoveDocument:   b.removeDocument,
		SearchSimilar:    b.searchSimilar,
		CountDocuments:   b.countDocuments,
		ListDocuments:    b.listDocuments,
		UpsertSource:     b.upsertSource,
		GetSource:        b.getSource,
		DeleteSource:     b.deleteSource,
	}
}

func (b *backend) initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := acquireConn(b.path)
	if err != nil {
		return err
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS vectors (
		id         VARCHAR PRIMARY KEY,
		content    TEXT NOT NULL,
		metadata   TEXT,
		embedding  FLOAT[%d] NOT NULL,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);
	`, b.dimensions)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = releaseConn(b.path)
		return fmt.Errorf("initialize schema: %w", err)
	}

	b.db = db

	if b.hnsw != nil {
		if err := b.rebuildSidecar(ctx); err != nil {
			// Construction failure: fall back to array_distance silently.
			b.hnsw = nil
		}
	}

	return nil
}

func (b *backend) rebuildSidecar(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, `SELECT id, embedding FROM vectors`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var embedding []float64
		if err := rows.Scan(&id, &embedding); err != nil {
			return err
		}
		vec := make([]float32, len(embedding))
		for i, v := range embedding {
			vec[i] = float32(v)
		}
		if err := b.hnsw.add(id, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (b *backend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	b.db = nil
	return releaseConn(b.path)
}

func arrayLiteral(vector []float32) string {
	buf := make([]byte, 0, len(vector)*8)
	buf = append(buf, '[')
	for i, v := range vector {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(v), 'g', -1, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}

func (b *backend) storeDocument(ctx context.Context, fragment *store.Fragment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	meta := packedMeta{
		SourceID:        fragment.SourceID,
		ChunkIndex:      fragment.ChunkIndex,
		SourceType:      fragment.SourceType,
		Title:           fragment.Title,
		URL:             fragment.URL,
		OriginalContent: fragment.OriginalContent,
		User:            fragment.Metadata,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO vectors(id, content, metadata, embedding, created_at, updated_at)
		VALUES (?, ?, ?, %s::FLOAT[%d], ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, arrayLiteral(fragment.Embedding), b.dimensions)

	if _, err := b.db.ExecContext(ctx, query, fragment.ID, fragment.Content, string(metaJSON), now, now); err != nil {
		return fmt.Errorf("upsert vector row: %w", err)
	}

	// FORCE CHECKPOINT after each insert, per spec durability requirement.
	if _, err := b.db.ExecContext(ctx, "FORCE CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	if b.hnsw != nil && len(fragment.Embedding) > 0 {
		_ = b.hnsw.add(fragment.ID, fragment.Embedding)
	}
	return nil
}

func rowToFragment(id, content, metaJSON string, embedding []float64) *store.Fragment {
	frag := &store.Fragment{ID: id, Content: content}
	var meta packedMeta
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &meta)
	}
	frag.SourceID = meta.SourceID
	frag.ChunkIndex = meta.ChunkIndex
	frag.SourceType = meta.SourceType
	frag.Title = meta.Title
	frag.URL = meta.URL
	frag.OriginalContent = meta.OriginalContent
	frag.Metadata = meta.User

	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	frag.Embedding = vec
	return frag
}

func (b *backend) retrieveDocument(ctx context.Context, id string) (*store.Fragment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var content, metaJSON string
	var embedding []float64
	err := b.db.QueryRowContext(ctx, `SELECT content, metadata, embedding FROM vectors WHERE id = ?`, id).
		Scan(&content, &metaJSON, &embedding)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToFragment(id, content, metaJSON, embedding), nil
}

func (b *backend) removeDocument(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return err
	}
	if b.hnsw != nil {
		b.hnsw.delete(id)
	}
	return nil
}

func (b *backend) searchSimilar(ctx context.Context, vector []float32, opts store.SearchOptions) ([]*store.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.hnsw != nil {
		return b.searchSidecar(vector, opts), nil
	}
	return b.searchArrayDistance(ctx, vector, opts)
}

func (b *backend) searchSidecar(vector []float32, opts store.SearchOptions) []*store.SearchResult {
	hits := b.hnsw.search(vector, opts.K*4+opts.K)
	results := make([]*store.SearchResult, 0, len(hits))
	for _, hit := range hits {
		frag, err := b.retrieveDocumentUnlocked(hit.id)
		if err != nil || frag == nil {
			continue
		}
		if !store.MatchFilter(frag, opts.Filter) {
			continue
		}
		results = append(results, &store.SearchResult{Fragment: frag, Distance: hit.distance, Score: hit.score})
		if len(results) >= opts.K {
			break
		}
	}
	return results
}

func (b *backend) retrieveDocumentUnlocked(id string) (*store.Fragment, error) {
	var content, metaJSON string
	var embedding []float64
	err := b.db.QueryRow(`SELECT content, metadata, embedding FROM vectors WHERE id = ?`, id).
		Scan(&content, &metaJSON, &embedding)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToFragment(id, content, metaJSON, embedding), nil
}

func (b *backend) searchArrayDistance(ctx context.Context, vector []float32, opts store.SearchOptions) ([]*store.SearchResult, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding,
			array_distance(embedding, %s::FLOAT[%d]) AS distance
		FROM vectors
		ORDER BY distance
		LIMIT ?`, arrayLiteral(vector), b.dimensions)

	rows, err := b.db.QueryContext(ctx, query, opts.K*4+opts.K)
	if err != nil {
		return nil, fmt.Errorf("array_distance scan: %w", err)
	}
	defer rows.Close()

	var results []*store.SearchResult
	for rows.Next() {
		var id, content, metaJSON string
		var embedding []float64
		var distance float64
		if err := rows.Scan(&id, &content, &metaJSON, &embedding, &distance); err != nil {
			return nil, err
		}
		frag := rowToFragment(id, content, metaJSON, embedding)
		if !store.MatchFilter(frag, opts.Filter) {
			continue
		}
		results = append(results, &store.SearchResult{
			Fragment: frag,
			Distance: float32(distance),
			Score:    float32(1 - distance),
		})
		if len(results) >= opts.K {
			break
		}
	}
	return results, rows.Err()
}

func (b *backend) countDocuments(ctx context.Context, filter map[string]string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	frags, err := b.listAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, frag := range frags {
		if store.MatchFilter(frag, filter) {
			n++
		}
	}
	return n, nil
}

func (b *backend) listDocuments(ctx context.Context, opts store.ListOptions) ([]*store.Fragment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	frags, err := b.listAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := frags[:0:0]
	for _, frag := range frags {
		if store.MatchFilter(frag, opts.Filter) {
			matched = append(matched, frag)
		}
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*store.Fragment{}, nil
	}
	matched = matched[offset:]
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (b *backend) listAll(ctx context.Context) ([]*store.Fragment, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM vectors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frags []*store.Fragment
	for rows.Next() {
		var id, content, metaJSON string
		var embedding []float64
		if err := rows.Scan(&id, &content, &metaJSON, &embedding); err != nil {
			return nil, err
		}
		frags = append(frags, rowToFragment(id, content, metaJSON, embedding))
	}
	return frags, rows.Err()
}

// upsertSource/getSource/deleteSource are no-ops/reads over the same
// vectors table: the ChunkIndex==0 fragment row already carries every
// source field, so there is no separate row to maintain.
func (b *backend) upsertSource(_ context.Context, _ *store.Source) error { return nil }

func (b *backend) getSource(ctx context.Context, sourceID string) (*store.Source, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, err := b.db.QueryContext(ctx, `SELECT content, metadata FROM vectors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var content, metaJSON string
		if err := rows.Scan(&content, &metaJSON); err != nil {
			return nil, err
		}
		var meta packedMeta
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &meta)
		}
		if meta.SourceID == sourceID && meta.ChunkIndex == 0 {
			return &store.Source{
				SourceID:        meta.SourceID,
				Title:           meta.Title,
				URL:             meta.URL,
				SourceType:      meta.SourceType,
				OriginalContent: meta.OriginalContent,
			}, nil
		}
	}
	return nil, fmt.Errorf("source %q not found", sourceID)
}

func (b *backend) deleteSource(_ context.Context, _ string) error { return nil }
