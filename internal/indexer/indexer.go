// Package indexer runs the materialize -> source-identity -> chunk -> embed
// -> persist pipeline for every source specifier the system accepts: raw
// text, a file path, a glob over a directory tree, a URL, and gist/github
// references.
package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/veyra-dev/veyra/internal/boundary"
	"github.com/veyra-dev/veyra/internal/chunk"
	"github.com/veyra-dev/veyra/internal/classify"
	"github.com/veyra-dev/veyra/internal/embed"
	"github.com/veyra-dev/veyra/internal/fulltext"
	"github.com/veyra-dev/veyra/internal/store"
	"github.com/veyra-dev/veyra/internal/verrors"
)

// Defaults mirror spec §4.G/§4.B.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 50

	// DefaultMaxFileSize bounds how large a single file this indexer will
	// read off disk, to avoid memory exhaustion on an accidentally-matched
	// multi-gigabyte file.
	DefaultMaxFileSize int64 = 100 * 1024 * 1024
)

// SourceType is the closed set of specifiers Index accepts.
type SourceType string

const (
	SourceText   SourceType = "text"
	SourceFile   SourceType = "file"
	SourceGlob   SourceType = "glob"
	SourceURL    SourceType = "url"
	SourceGist   SourceType = "gist"
	SourceGitHub SourceType = "github"
)

// Spec names one thing to index. Exactly the fields relevant to Type need
// to be set; the rest are ignored.
type Spec struct {
	Type SourceType

	// Text/Title back SourceText.
	Text  string
	Title string

	// Path is a file path (SourceFile) or a glob pattern (SourceGlob),
	// matched with '/' as the path separator regardless of OS.
	Path string

	// URL is fetched with HTTPClient for SourceURL.
	URL string

	// Owner/Repo/Ref/FilePath identify one file in a GitHub repository,
	// resolved through RepoFetcher, for SourceGitHub.
	Owner, Repo, Ref, FilePath string

	// GistID identifies a gist whose files are each indexed as their own
	// item, resolved through GistFetcher, for SourceGist.
	GistID string
}

// Result summarizes one Index call across every item a Spec expanded to
// (a glob or a gist may expand to many).
type Result struct {
	ItemsIndexed  int
	ChunksCreated int
	SourceIDs     []string
	Errors        []error
}

// HTTPClient is the external collaborator used for SourceURL fetches and by
// the default GitHub/gist fetchers; callers inject *http.Client or a test
// double so the indexer itself never reaches the network directly.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RepoFetcher resolves one GitHub file reference to its content and
// canonical URL.
type RepoFetcher interface {
	FetchFile(ctx context.Context, owner, repo, ref, path string) (content, url string, err error)
}

// GistFetcher resolves a gist id to its constituent files, keyed by
// filename.
type GistFetcher interface {
	FetchGist(ctx context.Context, gistID string) (files map[string]string, err error)
}

// Indexer runs the pipeline against one configured adapter/embedder pair.
type Indexer struct {
	Adapter  store.Adapter
	Embedder embed.Embedder

	// Fulltext, when set, is kept in sync with every persisted fragment so
	// keyword search has an accelerated candidate pool. Its errors are
	// ignored and never fail indexing: the adapter is the source of truth.
	Fulltext *fulltext.Index

	HTTPClient  HTTPClient
	RepoFetcher RepoFetcher
	GistFetcher GistFetcher

	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	MaxFileSize  int64
}

func (ix *Indexer) chunkSize() int {
	if ix.ChunkSize > 0 {
		return ix.ChunkSize
	}
	return DefaultChunkSize
}

func (ix *Indexer) chunkOverlap() int {
	if ix.ChunkOverlap > 0 {
		return ix.ChunkOverlap
	}
	return DefaultChunkOverlap
}

func (ix *Indexer) batchSize() int {
	if ix.BatchSize > 0 {
		return ix.BatchSize
	}
	return DefaultBatchSize
}

func (ix *Indexer) maxFileSize() int64 {
	if ix.MaxFileSize > 0 {
		return ix.MaxFileSize
	}
	return DefaultMaxFileSize
}

// materialized is one concrete text blob ready to be chunked, together
// with the bookkeeping the base adapter needs on its first fragment.
type materialized struct {
	content    string
	title      string
	url        string
	path       string // used for extension classification and display only
	sourceType SourceType
}

// Index runs the full pipeline for spec, returning a Result that always
// reports per-item failures rather than aborting on the first one, per
// spec §4.G/§7 batch propagation policy. Only a failure to even resolve
// the spec into indexable items (bad glob pattern, unreachable spec-level
// collaborator) is returned as an error.
func (ix *Indexer) Index(ctx context.Context, spec Spec, onProgress func(done, total int)) (*Result, error) {
	items, err := ix.materialize(ctx, spec)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, verrors.New(verrors.Cancelled, "indexing cancelled", err))
			break
		}

		chunksCreated, sourceID, err := ix.indexOne(ctx, item, onProgress)
		result.ItemsIndexed++
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.ChunksCreated += chunksCreated
		result.SourceIDs = append(result.SourceIDs, sourceID)
	}
	return result, nil
}

func (ix *Indexer) indexOne(ctx context.Context, item materialized, onProgress func(done, total int)) (int, string, error) {
	sourceID := stableSourceID(item)

	var info classify.Info
	if item.path != "" {
		info = classify.Classify(item.path)
	}
	spans := boundary.Detect(ctx, []byte(item.content), info)

	fragments := chunk.Chunk(item.content, chunk.Options{
		Size:               ix.chunkSize(),
		Overlap:            ix.chunkOverlap(),
		PreserveBoundaries: true,
		FilePath:           item.path,
		Spans:              spans,
	})

	total := len(fragments)
	chunksCreated := 0
	batch := ix.batchSize()

	for start := 0; start < len(fragments); start += batch {
		if err := ctx.Err(); err != nil {
			return chunksCreated, sourceID, verrors.New(verrors.Cancelled, "indexing cancelled", err)
		}

		end := start + batch
		if end > len(fragments) {
			end = len(fragments)
		}
		slice := fragments[start:end]

		texts := make([]string, len(slice))
		for i, f := range slice {
			texts[i] = f.Content
		}

		vectors, err := ix.Embedder.Embed(ctx, texts, func(done, doneTotal int) {
			if onProgress != nil {
				onProgress(start+done, total)
			}
		})
		if err != nil {
			return chunksCreated, sourceID, verrors.Wrap(verrors.Embedding, err)
		}

		storeFragments := make([]*store.Fragment, len(slice))
		for i, f := range slice {
			var span *boundary.Span
			if f.BoundaryType != "" {
				span = &boundary.Span{Type: f.BoundaryType, StartLine: f.StartLine, EndLine: f.EndLine, Title: f.BoundaryTitle}
			}
			sf := &store.Fragment{
				SourceID:   sourceID,
				ChunkIndex: start + i,
				Content:    f.Content,
				Embedding:  vectors[i],
				Boundary:   span,
			}
			if sf.ChunkIndex == 0 {
				sf.SourceType = string(item.sourceType)
				sf.Title = item.title
				sf.URL = item.url
				sf.OriginalContent = item.content
			}
			storeFragments[i] = sf
		}

		ids, errs := ix.Adapter.InsertBatch(ctx, storeFragments)
		var firstErr error
		for i, e := range errs {
			if e != nil {
				if firstErr == nil {
					firstErr = e
				}
				continue
			}
			chunksCreated++
			if ix.Fulltext != nil {
				_ = ix.Fulltext.Upsert(ctx, fulltext.Document{ID: ids[i], Content: storeFragments[i].Content})
			}
		}
		if firstErr != nil {
			return chunksCreated, sourceID, firstErr
		}
	}

	if onProgress != nil {
		onProgress(total, total)
	}
	return chunksCreated, sourceID, nil
}

// stableSourceID derives the content- or location-derived id spec §3
// requires: the same path/url/gist-file/github-file always maps to the
// same source id across runs, so re-indexing updates rather than
// duplicates. Raw text has no external identity, so its own content is
// hashed instead.
func stableSourceID(m materialized) string {
	key := string(m.sourceType) + ":" + m.path + ":" + m.url
	if m.path == "" && m.url == "" {
		key += m.content
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

func (ix *Indexer) materialize(ctx context.Context, spec Spec) ([]materialized, error) {
	switch spec.Type {
	case SourceText:
		title := spec.Title
		if title == "" {
			title = "text"
		}
		return []materialized{{content: spec.Text, title: title, sourceType: SourceText}}, nil

	case SourceFile:
		return ix.materializeFile(spec.Path)

	case SourceGlob:
		return ix.materializeGlob(spec.Path)

	case SourceURL:
		return ix.materializeURL(ctx, spec.URL)

	case SourceGitHub:
		return ix.materializeGitHub(ctx, spec)

	case SourceGist:
		return ix.materializeGist(ctx, spec.GistID)

	default:
		return nil, verrors.New(verrors.InvalidArgument, fmt.Sprintf("unknown source type %q", spec.Type), nil)
	}
}

func (ix *Indexer) materializeFile(path string) ([]materialized, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("stat %s", path), err)
	}
	if info.Size() > ix.maxFileSize() {
		return nil, verrors.New(verrors.InvalidArgument, fmt.Sprintf("%s exceeds max file size %d bytes", path, ix.maxFileSize()), nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("read %s", path), err)
	}
	if isBinary(content) {
		return nil, verrors.New(verrors.InvalidArgument, fmt.Sprintf("%s looks binary, skipping", path), nil)
	}

	return []materialized{{
		content:    string(content),
		title:      filepath.Base(path),
		path:       path,
		sourceType: SourceFile,
	}}, nil
}

// materializeGlob walks the glob pattern's base directory, never following
// symlinked directories, matching files against the compiled pattern.
// Unreadable entries, files over the size limit, and binary files are
// skipped; they appear neither in the returned error nor in Index's Result.
func (ix *Indexer) materializeGlob(pattern string) ([]materialized, error) {
	pattern = filepath.ToSlash(pattern)
	root := globBase(pattern)

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, verrors.New(verrors.InvalidArgument, fmt.Sprintf("invalid glob pattern %q", pattern), err)
	}

	var items []materialized
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry, skip rather than abort the walk
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !g.Match(filepath.ToSlash(path)) && !g.Match(rel) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil || info.Size() > ix.maxFileSize() {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil || isBinary(content) {
			return nil
		}

		items = append(items, materialized{
			content:    string(content),
			title:      filepath.Base(path),
			path:       path,
			sourceType: SourceGlob,
		})
		return nil
	})
	if walkErr != nil {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("walk %s", root), walkErr)
	}
	return items, nil
}

// globBase returns the directory prefix of pattern before its first glob
// meta-character, the root filepath.WalkDir starts from.
func globBase(pattern string) string {
	const metaChars = "*?[{"
	segments := strings.Split(pattern, "/")
	base := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.ContainsAny(seg, metaChars) {
			break
		}
		base = append(base, seg)
	}
	if len(base) == 0 {
		return "."
	}
	joined := strings.Join(base, "/")
	if joined == "" {
		return "/"
	}
	return joined
}

func (ix *Indexer) materializeURL(ctx context.Context, url string) ([]materialized, error) {
	if ix.HTTPClient == nil {
		return nil, verrors.New(verrors.InvalidArgument, "no HTTPClient configured for url source", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, verrors.New(verrors.InvalidArgument, fmt.Sprintf("invalid url %q", url), err)
	}
	resp, err := ix.HTTPClient.Do(req)
	if err != nil {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("fetch %s", url), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("fetch %s: status %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, verrors.New(verrors.IO, fmt.Sprintf("read response body for %s", url), err)
	}

	return []materialized{{
		content:    string(body),
		title:      url,
		url:        url,
		path:       url,
		sourceType: SourceURL,
	}}, nil
}

func (ix *Indexer) materializeGitHub(ctx context.Context, spec Spec) ([]materialized, error) {
	if ix.RepoFetcher == nil {
		return nil, verrors.New(verrors.InvalidArgument, "no RepoFetcher configured for github source", nil)
	}
	content, url, err := ix.RepoFetcher.FetchFile(ctx, spec.Owner, spec.Repo, spec.Ref, spec.FilePath)
	if err != nil {
		return nil, verrors.Wrap(verrors.IO, err)
	}
	return []materialized{{
		content:    content,
		title:      fmt.Sprintf("%s/%s@%s:%s", spec.Owner, spec.Repo, spec.Ref, spec.FilePath),
		url:        url,
		path:       spec.FilePath,
		sourceType: SourceGitHub,
	}}, nil
}

func (ix *Indexer) materializeGist(ctx context.Context, gistID string) ([]materialized, error) {
	if ix.GistFetcher == nil {
		return nil, verrors.New(verrors.InvalidArgument, "no GistFetcher configured for gist source", nil)
	}
	files, err := ix.GistFetcher.FetchGist(ctx, gistID)
	if err != nil {
		return nil, verrors.Wrap(verrors.IO, err)
	}

	items := make([]materialized, 0, len(files))
	for name, content := range files {
		items = append(items, materialized{
			content:    content,
			title:      name,
			url:        fmt.Sprintf("https://gist.github.com/%s#file-%s", gistID, name),
			path:       name,
			sourceType: SourceGist,
		})
	}
	return items, nil
}

// isBinary reports whether content looks like binary data: a null byte in
// the first 512 bytes.
func isBinary(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	return bytes.IndexByte(content[:checkLen], 0) >= 0
}
