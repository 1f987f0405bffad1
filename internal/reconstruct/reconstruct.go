// Package reconstruct rebuilds a source's original text, or a fragment's
// enclosing section, from the sibling fragments persisted in a
// store.Adapter. Both operations degrade to a best-effort result rather
// than failing the caller: a storage error returns the hit's own content
// instead of propagating.
package reconstruct

import (
	"context"
	"sort"

	"github.com/veyra-dev/veyra/internal/boundary"
	"github.com/veyra-dev/veyra/internal/chunk"
	"github.com/veyra-dev/veyra/internal/store"
)

// Reconstructor rebuilds full and section content from an Adapter's
// persisted fragments.
type Reconstructor struct {
	Adapter store.Adapter
}

// GetOriginalContent returns hit's owning source's original text. If the
// source's ChunkIndex==0 fragment carries OriginalContent verbatim,
// that's returned directly; otherwise every fragment sharing hit's
// SourceID is fetched, ordered by ChunkIndex, and stitched with the
// chunker's own overlap-removal rule. A storage failure degrades to hit's
// own content rather than erroring.
func (r *Reconstructor) GetOriginalContent(ctx context.Context, hit *store.Fragment) string {
	if hit.SourceID == "" {
		return hit.Content
	}

	siblings, err := r.Adapter.List(ctx, store.ListOptions{Filter: map[string]string{"sourceId": hit.SourceID}})
	if err != nil || len(siblings) == 0 {
		return hit.Content
	}

	for _, f := range siblings {
		if f.ChunkIndex == 0 && f.OriginalContent != "" {
			return f.OriginalContent
		}
	}

	return stitch(siblings)
}

// GetSectionContent returns the text of hit's enclosing structural
// section: the markdown heading or code definition its boundary belongs
// to. A hit with no boundary or no sourceId returns its own content
// unchanged. Otherwise every fragment in the same source whose boundary
// matches hit's on Type, Title, and Level (for whichever of those fields
// hit sets) is fetched, ordered, and stitched. A storage failure degrades
// to hit's own content, matching GetOriginalContent's policy.
func (r *Reconstructor) GetSectionContent(ctx context.Context, hit *store.Fragment) string {
	if hit.Boundary == nil || hit.SourceID == "" {
		return hit.Content
	}

	siblings, err := r.Adapter.List(ctx, store.ListOptions{Filter: map[string]string{"sourceId": hit.SourceID}})
	if err != nil {
		return hit.Content
	}

	var section []*store.Fragment
	for _, f := range siblings {
		if boundaryMatches(f.Boundary, hit.Boundary) {
			section = append(section, f)
		}
	}
	if len(section) == 0 {
		return hit.Content
	}

	return stitch(section)
}

func boundaryMatches(candidate, want *boundary.Span) bool {
	if candidate == nil {
		return false
	}
	if candidate.Type != want.Type {
		return false
	}
	if want.Title != "" && candidate.Title != want.Title {
		return false
	}
	if want.Level != 0 && candidate.Level != want.Level {
		return false
	}
	return true
}

func stitch(fragments []*store.Fragment) string {
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].ChunkIndex < fragments[j].ChunkIndex })

	chunkFragments := make([]chunk.Fragment, len(fragments))
	for i, f := range fragments {
		chunkFragments[i] = chunk.Fragment{ChunkIndex: f.ChunkIndex, Content: f.Content}
	}
	return chunk.StitchFragments(chunkFragments)
}
