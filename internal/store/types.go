// Package store defines the backend-agnostic vector adapter contract and
// the BaseAdapter that implements id assignment, source-row lifecycle, and
// error taxonomy exactly once atop a Primitives struct of storage
// primitives supplied by each backend (sqlitevec, sqlitepure, columnar,
// memstore).
package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/veyra-dev/veyra/internal/boundary"
)

// Fragment is one chunk of a source, carrying its embedding and the
// boundary/source bookkeeping fields the base adapter needs.
type Fragment struct {
	ID         string
	SourceID   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   map[string]string
	Boundary   *boundary.Span

	// Source-identifying fields. Only meaningful (and required) on the
	// fragment with ChunkIndex == 0 for a given SourceID; the base
	// adapter upserts the owning Source row from these.
	SourceType      string
	Title           string
	URL             string
	OriginalContent string

	CreatedAt time.Time
}

// Source is the per-sourceId row upserted from a fragment's ChunkIndex==0
// write and read back by the reconstructor.
type Source struct {
	SourceID        string
	Title           string
	URL             string
	SourceType      string
	OriginalContent string
	CreatedAt       time.Time
}

// FragmentUpdate carries only the fields a caller wants to change; nil
// fields are left untouched.
type FragmentUpdate struct {
	Content   *string
	Embedding []float32
	Metadata  map[string]string
}

// SearchOptions configures an Adapter.Search call.
type SearchOptions struct {
	K      int
	Filter map[string]string
}

// ListOptions configures an Adapter.List call.
type ListOptions struct {
	Limit  int
	Offset int
	Filter map[string]string
}

// SearchResult is one ranked hit from Adapter.Search.
type SearchResult struct {
	Fragment *Fragment
	Distance float32
	Score    float32
}

// Info describes a backend's static configuration and current size.
type Info struct {
	Backend    string
	Dimensions int
	Count      int
}

// Adapter is the public surface every backend exposes identically,
// regardless of what it's built on.
type Adapter interface {
	Initialize(ctx context.Context) error
	Close() error

	Insert(ctx context.Context, fragment *Fragment) (string, error)
	InsertBatch(ctx context.Context, fragments []*Fragment) ([]string, []error)
	Get(ctx context.Context, id string) (*Fragment, error)
	Update(ctx context.Context, id string, partial *FragmentUpdate) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) []error

	Search(ctx context.Context, vector []float32, opts SearchOptions) ([]*SearchResult, error)
	List(ctx context.Context, opts ListOptions) ([]*Fragment, error)
	Count(ctx context.Context, filter map[string]string) (int, error)
	Info(ctx context.Context) (*Info, error)
}

// Primitives is the struct of function values a backend supplies to
// BaseAdapter. This is the "Primitives struct passed at construction"
// design from Design Note 1: a backend is a value, not a type that
// implements an interface by inheritance.
type Primitives struct {
	Backend    string
	Dimensions int

	// InitializeFn/CloseFn may be nil when the backend has no connection
	// to open or release (memstore).
	InitializeFn func(ctx context.Context) error
	CloseFn      func() error

	StoreDocument    func(ctx context.Context, fragment *Fragment) error
	RetrieveDocument func(ctx context.Context, id string) (*Fragment, error)
	RemoveDocument   func(ctx context.Context, id string) error
	UpdateDocument   func(ctx context.Context, id string, partial *FragmentUpdate) error
	SearchSimilar    func(ctx context.Context, vector []float32, opts SearchOptions) ([]*SearchResult, error)
	CountDocuments   func(ctx context.Context, filter map[string]string) (int, error)
	ListDocuments    func(ctx context.Context, opts ListOptions) ([]*Fragment, error)

	// Source lifecycle. May be nil; BaseAdapter then treats a nil
	// GetSource as "always present". Every backend in this module supplies
	// all three (columnar, which folds source fields into the ChunkIndex==0
	// fragment's own row, included).
	UpsertSource func(ctx context.Context, source *Source) error
	GetSource    func(ctx context.Context, sourceID string) (*Source, error)
	DeleteSource func(ctx context.Context, sourceID string) error
}

// MatchFilter reports whether fragment satisfies every key/value pair in
// filter. Dotted keys with a "boundary." prefix traverse into
// Fragment.Boundary; everything else is looked up as a top-level field
// first, falling back to Metadata. Shared by memstore and sqlitepure,
// whose backing stores have no native predicate pushdown.
func MatchFilter(fragment *Fragment, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := fragmentFieldValue(fragment, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func fragmentFieldValue(fragment *Fragment, key string) (string, bool) {
	if rest, ok := strings.CutPrefix(key, "boundary."); ok {
		if fragment.Boundary == nil {
			return "", false
		}
		switch rest {
		case "type":
			return string(fragment.Boundary.Type), true
		case "title":
			return fragment.Boundary.Title, true
		case "level":
			return strconv.Itoa(fragment.Boundary.Level), true
		default:
			return "", false
		}
	}

	switch key {
	case "sourceId":
		return fragment.SourceID, true
	case "sourceType":
		return fragment.SourceType, true
	case "chunkIndex":
		return strconv.Itoa(fragment.ChunkIndex), true
	default:
		if fragment.Metadata == nil {
			return "", false
		}
		v, ok := fragment.Metadata[key]
		return v, ok
	}
}
