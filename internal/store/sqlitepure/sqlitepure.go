// Package sqlitepure implements the store.Primitives contract against
// SQLite through the pure-Go modernc.org/sqlite driver. No C extension can
// be loaded in this runtime, so the "vector extension" is emulated by a
// registered Go scalar function (vec_distance) computing cosine distance
// directly and a brute-force ORDER BY scan built from it. It has the same
// sources and documents tables as sqlitevec but no separate vector table:
// embeddings are stored as JSON-array text in documents.embedding instead
// of the cgo extension's packed blob.
package sqlitepure

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/sqlite"

	"github.com/veyra-dev/veyra/internal/store"
)

func init() {
	_ = sqlite.RegisterScalarFunction("vec_distance", 2, vecDistanceFunc)
}

// vecDistanceFunc computes cosine distance between two JSON-array-encoded
// float32 vectors stored as TEXT, matching coder/hnsw's 0..2 convention.
func vecDistanceFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, err := decodeVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeVector(args[1])
	if err != nil {
		return nil, err
	}
	return float64(cosineDistance(a, b)), nil
}

func decodeVector(v driver.Value) ([]float32, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("vec_distance: expected TEXT argument, got %T", v)
	}
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("vec_distance: decode vector: %w", err)
	}
	return vec, nil
}

func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	cos := dot / (sqrt(normA) * sqrt(normB))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(1 - cos)
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func encodeVector(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type backend struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	dimensions int
}

// New returns a store.Primitives backed by a SQLite database at path
// (":memory:" for an ephemeral store) opened through the pure-Go driver.
func New(path string, dimensions int) store.Primitives {
	b := &backend{path: path, dimensions: dimensions}

	return store.Primitives{
		Backend:          "sqlitepure",
		Dimensions:       dimensions,
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

	dsn := b.path
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		source_id        TEXT PRIMARY KEY,
		title            TEXT,
		url              TEXT,
		source_type      TEXT,
		original_content TEXT,
		created_at       TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		source_id     TEXT NOT NULL REFERENCES sources(source_id),
		content       TEXT NOT NULL,
		metadata_json TEXT,
		embedding     TEXT,
		chunk_index   INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("initialize schema: %w", err)
	}

	b.db = db
	return nil
}

func (b *backend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *backend) storeDocument(ctx context.Context, fragment *store.Fragment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	metaJSON, err := json.Marshal(fragment.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	var embJSON string
	if len(fragment.Embedding) > 0 {
		embJSON, err = encodeVector(fragment.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO documents(id, source_id, content, metadata_json, embedding, chunk_index)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			content = excluded.content,
			metadata_json = excluded.metadata_json,
			embedding = excluded.embedding,
			chunk_index = excluded.chunk_index
	`, fragment.ID, fragment.SourceID, fragment.Content, string(metaJSON), embJSON, fragment.ChunkIndex)
	return err
}

// documentColumns joins documents against their owning source so
// SourceType/Title/URL/OriginalContent round-trip on every read path, not
// just GetSource.
const documentColumns = `d.id, d.source_id, d.content, d.metadata_json, d.embedding, d.chunk_index,
	s.source_type, s.title, s.url, s.original_content`

const documentsJoinSources = `FROM documents d JOIN sources s ON d.source_id = s.source_id`

func (b *backend) scanFragment(row *sql.Row) (*store.Fragment, error) {
	var id, sourceID, content, metaJSON, embJSON string
	var chunkIndex int
	var sourceType, title, url, originalContent sql.NullString
	if err := row.Scan(&id, &sourceID, &content, &metaJSON, &embJSON, &chunkIndex,
		&sourceType, &title, &url, &originalContent); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	frag := &store.Fragment{
		ID:              id,
		SourceID:        sourceID,
		Content:         content,
		ChunkIndex:      chunkIndex,
		SourceType:      sourceType.String,
		Title:           title.String,
		URL:             url.String,
		OriginalContent: originalContent.String,
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &frag.Metadata)
	}
	if embJSON != "" {
		_ = json.Unmarshal([]byte(embJSON), &frag.Embedding)
	}
	return frag, nil
}

func (b *backend) retrieveDocument(ctx context.Context, id string) (*store.Fragment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	row := b.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		`+documentsJoinSources+` WHERE d.id = ?`, id)
	return b.scanFragment(row)
}

func (b *backend) removeDocument(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

func (b *backend) searchSimilar(ctx context.Context, vector []float32, opts store.SearchOptions) ([]*store.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	queryJSON, err := encodeVector(vector)
	if err != nil {
		return nil, fmt.Errorf("encode query vector: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT `+documentColumns+`,
			vec_distance(d.embedding, ?) AS distance
		`+documentsJoinSources+`
		WHERE d.embedding IS NOT NULL
		ORDER BY distance
		LIMIT ?`, queryJSON, opts.K*4+opts.K) // over-fetch before filter, mirrors brute-force scan
	if err != nil {
		return nil, fmt.Errorf("knn scan: %w", err)
	}
	defer rows.Close()

	var results []*store.SearchResult
	for rows.Next() {
		var id, sourceID, content, metaJSON, embJSON string
		var chunkIndex int
		var sourceType, title, url, originalContent sql.NullString
		var distance float64
		if err := rows.Scan(&id, &sourceID, &content, &metaJSON, &embJSON, &chunkIndex,
			&sourceType, &title, &url, &originalContent, &distance); err != nil {
			return nil, err
		}
		frag := &store.Fragment{
			ID:              id,
			SourceID:        sourceID,
			Content:         content,
			ChunkIndex:      chunkIndex,
			SourceType:      sourceType.String,
			Title:           title.String,
			URL:             url.String,
			OriginalContent: originalContent.String,
		}
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &frag.Metadata)
		}
		if embJSON != "" {
			_ = json.Unmarshal([]byte(embJSON), &frag.Embedding)
		}
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

	if sourceID, ok := filter["sourceId"]; ok && len(filter) == 1 {
		var n int
		err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE source_id = ?`, sourceID).Scan(&n)
		return n, err
	}

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
	rows, err := b.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		`+documentsJoinSources+` ORDER BY d.source_id, d.chunk_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frags []*store.Fragment
	for rows.Next() {
		var id, sourceID, content, metaJSON, embJSON string
		var chunkIndex int
		var sourceType, title, url, originalContent sql.NullString
		if err := rows.Scan(&id, &sourceID, &content, &metaJSON, &embJSON, &chunkIndex,
			&sourceType, &title, &url, &originalContent); err != nil {
			return nil, err
		}
		frag := &store.Fragment{
			ID:              id,
			SourceID:        sourceID,
			Content:         content,
			ChunkIndex:      chunkIndex,
			SourceType:      sourceType.String,
			Title:           title.String,
			URL:             url.String,
			OriginalContent: originalContent.String,
		}
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &frag.Metadata)
		}
		if embJSON != "" {
			_ = json.Unmarshal([]byte(embJSON), &frag.Embedding)
		}
		frags = append(frags, frag)
	}
	return frags, rows.Err()
}

func (b *backend) upsertSource(ctx context.Context, source *store.Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO sources(source_id, title, url, source_type, original_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			source_type = excluded.source_type,
			original_content = excluded.original_content
	`, source.SourceID, source.Title, source.URL, source.SourceType, source.OriginalContent, source.CreatedAt)
	return err
}

func (b *backend) getSource(ctx context.Context, sourceID string) (*store.Source, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var src store.Source
	err := b.db.QueryRowContext(ctx, `
		SELECT source_id, title, url, source_type, original_content, created_at
		FROM sources WHERE source_id = ?`, sourceID).
		Scan(&src.SourceID, &src.Title, &src.URL, &src.SourceType, &src.OriginalContent, &src.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source %q not found", sourceID)
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (b *backend) deleteSource(ctx context.Context, sourceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `DELETE FROM sources WHERE source_id = ?`, sourceID)
	return err
}
