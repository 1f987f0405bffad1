// Package chunk splits source text into an ordered list of fragments,
// honoring structural boundaries from internal/boundary when requested and
// falling back to fixed-size windows otherwise. Fragments carry no
// embeddings; internal/indexer attaches those afterward.
package chunk

import "github.com/veyra-dev/veyra/internal/boundary"

// Options configures one Chunk call.
type Options struct {
	// Size is the maximum fragment length in bytes. Must be >= 1.
	Size int
	// Overlap is the byte overlap between consecutive size-only windows.
	// Must satisfy 0 <= Overlap < Size.
	Overlap int
	// PreserveBoundaries, when true and Spans is non-empty, chunks along
	// structural boundaries instead of pure fixed-size windows.
	PreserveBoundaries bool
	// FilePath is carried through for caller bookkeeping; chunk does not
	// read from disk.
	FilePath string
	// Spans are the boundary spans detected for this text, normally the
	// output of boundary.Detect. Ignored when PreserveBoundaries is false.
	Spans []boundary.Span
}

// Fragment is one chunked slice of a source, in original-text order.
type Fragment struct {
	ChunkIndex int
	Content    string
	// StartLine/EndLine are 0-indexed inclusive; -1 when not known (can
	// happen for size-only runs over text with no newlines tracked).
	StartLine int
	EndLine   int
	// BoundaryType/BoundaryTitle are set when the fragment was derived
	// from (or sub-chunked from) a boundary.Span; empty for size-only
	// fragments that fall in the gaps between spans.
	BoundaryType  boundary.SpanType
	BoundaryTitle string
}
