// Package sqlitevec implements the store.Primitives contract against
// SQLite through the cgo mattn/go-sqlite3 driver with the sqlite-vec
// loadable extension registered via a ConnectHook, grounded on the
// connection-setup style of the teacher's SQLite FTS5 index.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlitevecext "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veyra-dev/veyra/internal/store"
)

func init() {
	sqlitevecext.Auto()
}

type backend struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	dimensions int
}

// New returns a store.Primitives backed by a SQLite database at path
// (":memory:" for an ephemeral store), using the sqlite-vec extension for
// approximate-nearest-neighbour search.
func New(path string, dimensions int) store.Primitives {
	b := &backend{path: path, dimensions: dimensions}

	return store.Primitives{
		Backend:          "sqlitevec",
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
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := fmt.Sprintf(`
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
		vec_rowid     INTEGER,
		chunk_index   INTEGER NOT NULL
	);
	CREATE VIRTUAL TABLE IF NOT EXISTS vec_documents USING vec0(
		embedding float[%d]
	);
	`, b.dimensions)

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

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Deleting any previous row for this id first (insertBatch double-write
	// safety) mirrors the FTS5 delete-then-insert pattern used elsewhere in
	// this corpus for virtual tables with no native upsert.
	var oldRowid sql.NullInt64
	_ = tx.QueryRowContext(ctx, `SELECT vec_rowid FROM documents WHERE id = ?`, fragment.ID).Scan(&oldRowid)
	if oldRowid.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_documents WHERE rowid = ?`, oldRowid.Int64); err != nil {
			return fmt.Errorf("delete stale vector: %w", err)
		}
	}

	metaJSON, err := json.Marshal(fragment.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	var vecRowid int64
	if len(fragment.Embedding) > 0 {
		packed, err := sqlitevecext.SerializeFloat32(fragment.Embedding)
		if err != nil {
			return fmt.Errorf("serialize embedding: %w", err)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO vec_documents(embedding) VALUES (?)`, packed)
		if err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
		vecRowid, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read vec rowid: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents(id, source_id, content, metadata_json, vec_rowid, chunk_index)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			content = excluded.content,
			metadata_json = excluded.metadata_json,
			vec_rowid = excluded.vec_rowid,
			chunk_index = excluded.chunk_index
	`, fragment.ID, fragment.SourceID, fragment.Content, string(metaJSON), vecRowid, fragment.ChunkIndex)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	return tx.Commit()
}

// documentColumns is the column list every fragment read joins documents
// against its owning source for, so SourceType/Title/URL/OriginalContent
// round-trip on every read path, not just GetSource.
const documentColumns = `d.id, d.source_id, d.content, d.metadata_json, d.vec_rowid, d.chunk_index,
	s.source_type, s.title, s.url, s.original_content`

const documentsJoinSources = `FROM documents d JOIN sources s ON d.source_id = s.source_id`

func (b *backend) scanFragment(row *sql.Row) (*store.Fragment, error) {
	var id, sourceID, content, metaJSON string
	var vecRowid sql.NullInt64
	var chunkIndex int
	var sourceType, title, url, originalContent sql.NullString
	if err := row.Scan(&id, &sourceID, &content, &metaJSON, &vecRowid, &chunkIndex,
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
	if vecRowid.Valid {
		embedding, err := b.readEmbedding(vecRowid.Int64)
		if err != nil {
			return nil, err
		}
		frag.Embedding = embedding
	}
	return frag, nil
}

func (b *backend) readEmbedding(rowid int64) ([]float32, error) {
	var packed []byte
	err := b.db.QueryRow(`SELECT embedding FROM vec_documents WHERE rowid = ?`, rowid).Scan(&packed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sqlitevecext.DeserializeFloat32(packed)
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

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var vecRowid sql.NullInt64
	_ = tx.QueryRowContext(ctx, `SELECT vec_rowid FROM documents WHERE id = ?`, id).Scan(&vecRowid)
	if vecRowid.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_documents WHERE rowid = ?`, vecRowid.Int64); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *backend) searchSimilar(ctx context.Context, vector []float32, opts store.SearchOptions) ([]*store.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	packed, err := sqlitevecext.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT rowid, distance FROM vec_documents
		WHERE embedding MATCH ? ORDER BY distance LIMIT ?`, packed, opts.K)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	results := make([]*store.SearchResult, 0, opts.K)
	for rows.Next() {
		var vecRowid int64
		var distance float64
		if err := rows.Scan(&vecRowid, &distance); err != nil {
			return nil, err
		}

		row := b.db.QueryRowContext(ctx, `
			SELECT `+documentColumns+`
			`+documentsJoinSources+` WHERE d.vec_rowid = ?`, vecRowid)
		frag, err := b.scanFragment(row)
		if err != nil || frag == nil {
			continue
		}
		if !store.MatchFilter(frag, opts.Filter) {
			continue
		}
		results = append(results, &store.SearchResult{
			Fragment: frag,
			Distance: float32(distance),
			Score:    float32(1 - distance),
		})
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
		var id, sourceID, content, metaJSON string
		var vecRowid sql.NullInt64
		var chunkIndex int
		var sourceType, title, url, originalContent sql.NullString
		if err := rows.Scan(&id, &sourceID, &content, &metaJSON, &vecRowid, &chunkIndex,
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
		if vecRowid.Valid {
			frag.Embedding, _ = b.readEmbedding(vecRowid.Int64)
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
