// Package memstore provides an in-memory Primitives backend: linear-scan
// cosine similarity over a slice of fragments. Used for tests and selected
// with store.backend "memstore"; there is no "memory" provider or backend
// value.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/veyra-dev/veyra/internal/store"
)

type memStore struct {
	mu        sync.RWMutex
	fragments map[string]*store.Fragment
	sources   map[string]*store.Source
}

// New returns a store.Primitives backed by an in-process map, set up for
// the given embedding dimension.
func New(dimensions int) store.Primitives {
	ms := &memStore{
		fragments: make(map[string]*store.Fragment),
		sources:   make(map[string]*store.Source),
	}

	return store.Primitives{
		Backend:          "memstore",
		Dimensions:       dimensions,
		StoreDocument:    ms.storeDocument,
		RetrieveDocument: ms.retrieveDocument,
		RemoveDocument:   ms.removeDocument,
		SearchSimilar:    ms.searchSimilar,
		CountDocuments:   ms.countDocuments,
		ListDocuments:    ms.listDocuments,
		UpsertSource:     ms.upsertSource,
		GetSource:        ms.getSource,
		DeleteSource:     ms.deleteSource,
	}
}

func (m *memStore) storeDocument(_ context.Context, fragment *store.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *fragment
	m.fragments[fragment.ID] = &cp
	return nil
}

func (m *memStore) retrieveDocument(_ context.Context, id string) (*store.Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frag, ok := m.fragments[id]
	if !ok {
		return nil, nil
	}
	cp := *frag
	return &cp, nil
}

func (m *memStore) removeDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.fragments, id)
	return nil
}

func (m *memStore) countDocuments(_ context.Context, filter map[string]string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(filter) == 0 {
		return len(m.fragments), nil
	}
	n := 0
	for _, frag := range m.fragments {
		if store.MatchFilter(frag, filter) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) listDocuments(_ context.Context, opts store.ListOptions) ([]*store.Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*store.Fragment, 0, len(m.fragments))
	for _, frag := range m.fragments {
		if store.MatchFilter(frag, opts.Filter) {
			cp := *frag
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SourceID != matched[j].SourceID {
			return matched[i].SourceID < matched[j].SourceID
		}
		return matched[i].ChunkIndex < matched[j].ChunkIndex
	})

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

func (m *memStore) searchSimilar(_ context.Context, vector []float32, opts store.SearchOptions) ([]*store.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*store.SearchResult, 0, len(m.fragments))
	for _, frag := range m.fragments {
		if !store.MatchFilter(frag, opts.Filter) {
			continue
		}
		if len(frag.Embedding) == 0 {
			continue
		}
		dist := cosineDistance(vector, frag.Embedding)
		cp := *frag
		results = append(results, &store.SearchResult{
			Fragment: &cp,
			Distance: dist,
			Score:    1 - dist/2, // hnsw CosineDistance-compatible mapping, per Open Question 2
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Fragment.ChunkIndex != results[j].Fragment.ChunkIndex {
			return results[i].Fragment.ChunkIndex < results[j].Fragment.ChunkIndex
		}
		return results[i].Fragment.SourceID < results[j].Fragment.SourceID
	})

	if opts.K > 0 && len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

func (m *memStore) upsertSource(_ context.Context, source *store.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *source
	m.sources[source.SourceID] = &cp
	return nil
}

func (m *memStore) getSource(_ context.Context, sourceID string) (*store.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.sources[sourceID]
	if !ok {
		return nil, nil
	}
	cp := *src
	return &cp, nil
}

func (m *memStore) deleteSource(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sources, sourceID)
	return nil
}

// cosineDistance mirrors coder/hnsw's CosineDistance convention (0
// identical .. 2 opposite) so memstore's score formula matches the
// columnar-with-HNSW and memstore mapping fixed by Open Question 2.
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
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(1 - cos)
}
