package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder is a test double counting how many texts it was actually
// asked to embed, so cache-hit behaviour can be asserted.
type mockEmbedder struct {
	embedCalls     atomic.Int64
	dimensions     int
	modelName      string
	returnedVector []float32
	closed         bool
}

func newMockEmbedder(dims int) *mockEmbedder {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return &mockEmbedder{dimensions: dims, modelName: "mock-model", returnedVector: vec}
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error) {
	m.embedCalls.Add(int64(len(texts)))
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.returnedVector
	}
	if onProgress != nil {
		onProgress(len(texts), len(texts))
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int                       { return m.dimensions }
func (m *mockEmbedder) ModelName() string                     { return m.modelName }
func (m *mockEmbedder) Available(ctx context.Context) bool    { return true }
func (m *mockEmbedder) Close() error                          { m.closed = true; return nil }

func TestCachedEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	var _ Embedder = cached
}

func TestCachedEmbedder_CacheHit_ReturnsWithoutCallingInner(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	text := "func add(a, b int) int { return a + b }"

	result1, err1 := cached.Embed(ctx, []string{text}, nil)
	result2, err2 := cached.Embed(ctx, []string{text}, nil)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, int64(1), inner.embedCalls.Load(), "inner should be called once")
	assert.Equal(t, result1, result2, "cached results should match")
}

func TestCachedEmbedder_CacheMiss_CallsInnerForNewText(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()

	_, err1 := cached.Embed(ctx, []string{"text one"}, nil)
	_, err2 := cached.Embed(ctx, []string{"text two"}, nil)
	_, err3 := cached.Embed(ctx, []string{"text three"}, nil)

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Equal(t, int64(3), inner.embedCalls.Load(), "inner should be called for each unique text")
}

func TestCachedEmbedder_Dimensions_ReturnsInnerDimensions(t *testing.T) {
	inner := newMockEmbedder(1024)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	assert.Equal(t, 1024, cached.Dimensions())
}

func TestCachedEmbedder_ModelName_ReturnsInnerModelName(t *testing.T) {
	inner := newMockEmbedder(768)
	inner.modelName = "custom-model-v2"
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	assert.Equal(t, "custom-model-v2", cached.ModelName())
}

func TestCachedEmbedder_Available_ReturnsInnerAvailable(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	assert.True(t, cached.Available(context.Background()))
}

func TestCachedEmbedder_Embed_CachesIndividualResults(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	texts := []string{"text1", "text2", "text3"}

	_, err1 := cached.Embed(ctx, texts, nil)
	require.NoError(t, err1)

	inner.embedCalls.Store(0)
	_, err2 := cached.Embed(ctx, []string{"text1"}, nil) // should hit cache

	require.NoError(t, err2)
	assert.Equal(t, int64(0), inner.embedCalls.Load(), "individual text should hit the batch's cache")
}

func TestCachedEmbedder_Embed_PartialCacheHitOnlyCallsInnerForMisses(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err := cached.Embed(ctx, []string{"a", "b"}, nil)
	require.NoError(t, err)

	inner.embedCalls.Store(0)
	_, err = cached.Embed(ctx, []string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.embedCalls.Load(), "only the uncached text should reach inner")
}

func TestCachedEmbedder_Close_ClosesInner(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)

	err := cached.Close()
	assert.NoError(t, err)
	assert.True(t, inner.closed, "inner embedder should be closed")
}

func TestNewCachedEmbedderWithDefaults_UsesDefaultCacheSize(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedderWithDefaults(inner)
	defer func() { _ = cached.Close() }()

	_, err := cached.Embed(context.Background(), []string{"test"}, nil)
	require.NoError(t, err)
}

func TestCachedEmbedder_CacheEviction_OldestEvictedFirst(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 3) // only 3 entries
	defer func() { _ = cached.Close() }()

	ctx := context.Background()

	_, _ = cached.Embed(ctx, []string{"text1"}, nil) // will be evicted
	_, _ = cached.Embed(ctx, []string{"text2"}, nil)
	_, _ = cached.Embed(ctx, []string{"text3"}, nil)
	_, _ = cached.Embed(ctx, []string{"text4"}, nil) // forces eviction

	inner.embedCalls.Store(0)
	_, err := cached.Embed(ctx, []string{"text1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.embedCalls.Load(), "evicted text should require new embedding")

	inner.embedCalls.Store(0)
	_, _ = cached.Embed(ctx, []string{"text3"}, nil)
	_, _ = cached.Embed(ctx, []string{"text4"}, nil)
	assert.Equal(t, int64(0), inner.embedCalls.Load(), "recent texts should be cached")
}

func TestCachedEmbedder_Inner_ReturnsUnderlyingEmbedder(t *testing.T) {
	inner := newMockEmbedder(768)
	inner.modelName = "test-model-for-inner"
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	gotInner := cached.Inner()

	assert.NotNil(t, gotInner)
	assert.Equal(t, inner, gotInner, "Inner() should return the wrapped embedder")
	assert.Equal(t, "test-model-for-inner", gotInner.ModelName())
}

func TestCachedEmbedder_ConcurrentAccess_NoRace(t *testing.T) {
	inner := newMockEmbedder(768)
	cached := NewCachedEmbedder(inner, 100)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	texts := []string{"a", "b", "c", "d", "e"}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_, _ = cached.Embed(ctx, []string{texts[j%len(texts)]}, nil)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
