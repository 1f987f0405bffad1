package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout is the default timeout for a single embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultDimensions is the fallback vector dimension when nothing else
	// is configured (matches the Ollama embedder's auto-detection default).
	DefaultDimensions = 768
)

// Embedder generates unit-norm vector embeddings for text. The core
// treats it as opaque: it imposes no retry policy of its own and fails the
// whole call if any input fails, per the single embed(texts, onProgress)
// contract callers depend on.
type Embedder interface {
	// Embed generates one vector per text, in input order. onProgress, if
	// non-nil, is called after each internally-batched chunk of work
	// completes with (done, total) counts; implementations that do not
	// batch internally may call it once at the end.
	Embed(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error)

	// Dimensions returns the embedding dimension this embedder produces.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources held by the embedder.
	Close() error
}

// normalizeVector scales v to unit length, leaving zero vectors unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
