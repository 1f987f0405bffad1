package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veyra-dev/veyra/internal/verrors"
)

// BaseAdapter implements the full Adapter surface atop a backend's
// Primitives: id assignment, source-row lifecycle, and dimension/not-found
// error taxonomy are all handled exactly once here, never duplicated per
// backend.
type BaseAdapter struct {
	mu          sync.RWMutex
	initialized bool
	closed      bool
	p           Primitives
}

var _ Adapter = (*BaseAdapter)(nil)

// NewBaseAdapter wraps p in a full Adapter. p.StoreDocument,
// RetrieveDocument, RemoveDocument, SearchSimilar, CountDocuments and
// ListDocuments must be non-nil; everything else is optional.
func NewBaseAdapter(p Primitives) *BaseAdapter {
	return &BaseAdapter{p: p}
}

func (a *BaseAdapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.p.InitializeFn != nil {
		if err := a.p.InitializeFn(ctx); err != nil {
			return verrors.Wrap(verrors.BackendUnavailable, err)
		}
	}
	a.initialized = true
	return nil
}

func (a *BaseAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.p.CloseFn != nil {
		return a.p.CloseFn()
	}
	return nil
}

func (a *BaseAdapter) requireReady() error {
	if !a.initialized {
		return verrors.New(verrors.NotInitialized, "adapter not initialized", nil)
	}
	if a.closed {
		return verrors.New(verrors.NotInitialized, "adapter closed", nil)
	}
	return nil
}

func (a *BaseAdapter) Insert(ctx context.Context, fragment *Fragment) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.insertLocked(ctx, fragment)
}

func (a *BaseAdapter) insertLocked(ctx context.Context, fragment *Fragment) (string, error) {
	if fragment == nil {
		return "", verrors.New(verrors.InvalidArgument, "fragment is nil", nil)
	}
	if fragment.ID == "" {
		fragment.ID = uuid.NewString()
	}
	if a.p.Dimensions > 0 && len(fragment.Embedding) > 0 && len(fragment.Embedding) != a.p.Dimensions {
		return "", verrors.New(verrors.DimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, store configured for %d", len(fragment.Embedding), a.p.Dimensions), nil).
			WithDetail("fragmentId", fragment.ID)
	}
	if fragment.CreatedAt.IsZero() {
		fragment.CreatedAt = time.Now().UTC()
	}

	if fragment.ChunkIndex > 0 && a.p.GetSource != nil {
		if src, err := a.p.GetSource(ctx, fragment.SourceID); err != nil || src == nil {
			return "", verrors.New(verrors.InvalidArgument, "fragment references unknown source", err).
				WithDetail("sourceId", fragment.SourceID)
		}
	}

	if err := a.p.StoreDocument(ctx, fragment); err != nil {
		return "", verrors.Wrap(verrors.Internal, err)
	}

	if fragment.ChunkIndex == 0 && a.p.UpsertSource != nil {
		src := &Source{
			SourceID:        fragment.SourceID,
			Title:           fragment.Title,
			URL:             fragment.URL,
			SourceType:      fragment.SourceType,
			OriginalContent: fragment.OriginalContent,
			CreatedAt:       fragment.CreatedAt,
		}
		if err := a.p.UpsertSource(ctx, src); err != nil {
			return "", verrors.Wrap(verrors.Internal, err)
		}
	}

	return fragment.ID, nil
}

// InsertBatch is best-effort: every fragment is attempted regardless of
// earlier failures in the same call. ids[i]/errs[i] line up with
// fragments[i]; ids[i] is empty wherever errs[i] is non-nil.
func (a *BaseAdapter) InsertBatch(ctx context.Context, fragments []*Fragment) ([]string, []error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, len(fragments))
	errs := make([]error, len(fragments))

	if err := a.requireReady(); err != nil {
		for i := range errs {
			errs[i] = err
		}
		return ids, errs
	}

	for i, f := range fragments {
		id, err := a.insertLocked(ctx, f)
		ids[i] = id
		errs[i] = err
	}
	return ids, errs
}

func (a *BaseAdapter) Get(ctx context.Context, id string) (*Fragment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.getLocked(ctx, id)
}

func (a *BaseAdapter) getLocked(ctx context.Context, id string) (*Fragment, error) {
	frag, err := a.p.RetrieveDocument(ctx, id)
	if err != nil {
		return nil, verrors.Wrap(verrors.Internal, err)
	}
	if frag == nil {
		return nil, verrors.New(verrors.DocumentNotFound, fmt.Sprintf("document %q not found", id), nil).
			WithDetail("id", id)
	}
	return frag, nil
}

func (a *BaseAdapter) Update(ctx context.Context, id string, partial *FragmentUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}
	if partial == nil {
		return verrors.New(verrors.InvalidArgument, "update is nil", nil)
	}

	if a.p.Dimensions > 0 && len(partial.Embedding) > 0 && len(partial.Embedding) != a.p.Dimensions {
		return verrors.New(verrors.DimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, store configured for %d", len(partial.Embedding), a.p.Dimensions), nil).
			WithDetail("id", id)
	}

	if a.p.UpdateDocument != nil {
		if err := a.p.UpdateDocument(ctx, id, partial); err != nil {
			return verrors.Wrap(verrors.Internal, err)
		}
		return nil
	}

	// Fallback: read-modify-write through StoreDocument for backends that
	// don't supply a dedicated update primitive.
	frag, err := a.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if partial.Content != nil {
		frag.Content = *partial.Content
	}
	if partial.Embedding != nil {
		frag.Embedding = partial.Embedding
	}
	if partial.Metadata != nil {
		frag.Metadata = partial.Metadata
	}
	if err := a.p.StoreDocument(ctx, frag); err != nil {
		return verrors.Wrap(verrors.Internal, err)
	}
	return nil
}

func (a *BaseAdapter) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireReady(); err != nil {
		return err
	}
	return a.deleteLocked(ctx, id)
}

func (a *BaseAdapter) deleteLocked(ctx context.Context, id string) error {
	frag, err := a.getLocked(ctx, id)
	if err != nil {
		return err
	}

	if err := a.p.RemoveDocument(ctx, id); err != nil {
		return verrors.Wrap(verrors.Internal, err)
	}

	if a.p.DeleteSource != nil && a.p.CountDocuments != nil {
		remaining, err := a.p.CountDocuments(ctx, map[string]string{"sourceId": frag.SourceID})
		if err == nil && remaining == 0 {
			_ = a.p.DeleteSource(ctx, frag.SourceID)
		}
	}

	return nil
}

// DeleteBatch attempts every id regardless of earlier failures;
// errs[i] is nil wherever the delete at ids[i] succeeded.
func (a *BaseAdapter) DeleteBatch(ctx context.Context, ids []string) []error {
	a.mu.Lock()
	defer a.mu.Unlock()

	errs := make([]error, len(ids))
	if err := a.requireReady(); err != nil {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}

	for i, id := range ids {
		errs[i] = a.deleteLocked(ctx, id)
	}
	return errs
}

func (a *BaseAdapter) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]*SearchResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.requireReady(); err != nil {
		return nil, err
	}
	if a.p.Dimensions > 0 && len(vector) != a.p.Dimensions {
		return nil, verrors.New(verrors.DimensionMismatch,
			fmt.Sprintf("query vector has %d dimensions, store configured for %d", len(vector), a.p.Dimensions), nil)
	}
	if opts.K <= 0 {
		return nil, verrors.New(verrors.InvalidArgument, "k must be positive", nil)
	}

	results, err := a.p.SearchSimilar(ctx, vector, opts)
	if err != nil {
		return nil, verrors.Wrap(verrors.Internal, err)
	}
	return results, nil
}

func (a *BaseAdapter) List(ctx context.Context, opts ListOptions) ([]*Fragment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.requireReady(); err != nil {
		return nil, err
	}
	frags, err := a.p.ListDocuments(ctx, opts)
	if err != nil {
		return nil, verrors.Wrap(verrors.Internal, err)
	}
	return frags, nil
}

func (a *BaseAdapter) Count(ctx context.Context, filter map[string]string) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.requireReady(); err != nil {
		return 0, err
	}
	n, err := a.p.CountDocuments(ctx, filter)
	if err != nil {
		return 0, verrors.Wrap(verrors.Internal, err)
	}
	return n, nil
}

func (a *BaseAdapter) Info(ctx context.Context) (*Info, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.requireReady(); err != nil {
		return nil, err
	}
	count, err := a.p.CountDocuments(ctx, nil)
	if err != nil {
		return nil, verrors.Wrap(verrors.Internal, err)
	}
	return &Info{
		Backend:    a.p.Backend,
		Dimensions: a.p.Dimensions,
		Count:      count,
	}, nil
}
