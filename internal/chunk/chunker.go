package chunk

import (
	"strings"

	"github.com/veyra-dev/veyra/internal/boundary"
)

// lineOffsets returns the byte offset of the start of each line in text,
// so a 0-indexed line number can be converted to a byte offset.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func lineToByte(offsets []int, line int, endOfLine bool, textLen int) int {
	if line < 0 {
		return 0
	}
	if line >= len(offsets) {
		return textLen
	}
	if !endOfLine {
		return offsets[line]
	}
	if line+1 < len(offsets) {
		// end of line is the byte before the next line's start, trimming
		// the trailing newline itself.
		end := offsets[line+1] - 1
		if end < offsets[line] {
			end = offsets[line]
		}
		return end
	}
	return textLen
}

// Chunk splits text into an ordered Fragment list per Options.
func Chunk(text string, opts Options) []Fragment {
	size := opts.Size
	if size < 1 {
		size = 1
	}
	overlap := opts.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	opts.Size, opts.Overlap = size, overlap

	if opts.PreserveBoundaries && len(opts.Spans) > 0 {
		return chunkWithBoundaries(text, opts)
	}
	return sizeOnlyChunks(text, 0, len(text), opts.Size, opts.Overlap, boundary.SpanType(""), "", -1)
}

// leafSpan is a boundary.Span plus its byte range, restricted to the
// flat leaf partition (no span strictly contains another leaf span).
type leafSpan struct {
	boundary.Span
	startByte int
	endByte   int
}

func chunkWithBoundaries(text string, opts Options) []Fragment {
	offsets := lineOffsets(text)
	leaves := leafSpans(opts.Spans)

	// Convert to byte ranges and sort by start.
	spans := make([]leafSpan, 0, len(leaves))
	for _, s := range leaves {
		start := lineToByte(offsets, s.StartLine, false, len(text))
		end := lineToByte(offsets, s.EndLine, true, len(text))
		if end < start {
			end = start
		}
		spans = append(spans, leafSpan{Span: s, startByte: start, endByte: end})
	}
	sortLeafSpans(spans)
	spans = mergeSmallSpans(spans, opts.Size)

	var fragments []Fragment
	cursor := 0
	for _, s := range spans {
		if s.startByte > cursor {
			// Gap before this span: untagged size-only fill.
			fragments = append(fragments, sizeOnlyChunks(text, cursor, s.startByte, opts.Size, opts.Overlap, "", "", -1)...)
		}
		spanText := text[s.startByte:s.endByte]
		if len(spanText) <= opts.Size {
			fragments = append(fragments, Fragment{
				Content:       spanText,
				StartLine:     s.StartLine,
				EndLine:       s.EndLine,
				BoundaryType:  s.Type,
				BoundaryTitle: s.Title,
			})
		} else {
			fragments = append(fragments, sizeOnlyChunks(text, s.startByte, s.endByte, opts.Size, opts.Overlap, s.Type, s.Title, s.StartLine)...)
		}
		cursor = s.endByte
	}
	if cursor < len(text) {
		fragments = append(fragments, sizeOnlyChunks(text, cursor, len(text), opts.Size, opts.Overlap, "", "", -1)...)
	}

	return reindex(fragments)
}

// leafSpans filters spans down to those not strictly containing another
// span (the finest-grain, non-overlapping partition the chunker emits
// fragments from).
func leafSpans(spans []boundary.Span) []boundary.Span {
	leaves := make([]boundary.Span, 0, len(spans))
	for i, s := range spans {
		isLeaf := true
		for j, other := range spans {
			if i == j {
				continue
			}
			if strictlyContains(other, s) {
				isLeaf = false
				break
			}
		}
		if isLeaf {
			leaves = append(leaves, s)
		}
	}
	return leaves
}

func strictlyContains(outer, inner boundary.Span) bool {
	if outer.StartLine == inner.StartLine && outer.EndLine == inner.EndLine {
		return false
	}
	return outer.StartLine <= inner.StartLine && outer.EndLine >= inner.EndLine
}

func sortLeafSpans(spans []leafSpan) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1].startByte > spans[j].startByte; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}
}

// mergeSmallSpans merges adjacent leaf spans shorter than size/4 into
// their immediate neighbour, approximating "merge with neighbour of the
// same parent" without reconstructing the full span tree.
func mergeSmallSpans(spans []leafSpan, size int) []leafSpan {
	threshold := size / 4
	if threshold < 1 {
		return spans
	}

	merged := make([]leafSpan, 0, len(spans))
	for _, s := range spans {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			prevLen := prev.endByte - prev.startByte
			curLen := s.endByte - s.startByte
			adjacent := prev.endByte == s.startByte
			if adjacent && (prevLen < threshold || curLen < threshold) {
				prev.endByte = s.endByte
				prev.EndLine = s.EndLine
				continue
			}
		}
		merged = append(merged, s)
	}
	return merged
}

// sizeOnlyChunks slides a window of length size with step size-overlap
// over text[start:end]. The last window is truncated, not padded;
// trailing whitespace-only windows are discarded. boundaryLine, when >=0,
// seeds the line number reported for the first fragment; subsequent
// fragments leave line numbers at -1 (unknown) since size-only runs don't
// track line boundaries precisely.
func sizeOnlyChunks(text string, start, end, size, overlap int, bt boundary.SpanType, title string, boundaryLine int) []Fragment {
	if start >= end {
		return nil
	}

	step := size - overlap
	if step < 1 {
		step = 1
	}

	var fragments []Fragment
	pos := start
	for pos < end {
		windowEnd := pos + size
		if windowEnd > end {
			windowEnd = end
		}
		content := text[pos:windowEnd]
		if strings.TrimSpace(content) != "" {
			line := -1
			if boundaryLine >= 0 && pos == start {
				line = boundaryLine
			}
			fragments = append(fragments, Fragment{
				Content:       content,
				StartLine:     line,
				EndLine:       -1,
				BoundaryType:  bt,
				BoundaryTitle: title,
			})
		}
		if windowEnd >= end {
			break
		}
		pos += step
	}
	return fragments
}

func reindex(fragments []Fragment) []Fragment {
	for i := range fragments {
		fragments[i].ChunkIndex = i
	}
	return fragments
}
