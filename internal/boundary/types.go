// Package boundary locates structural regions within a source buffer —
// markdown headings or code function/method/class definitions — so the
// chunker can preserve them instead of slicing blindly by size.
package boundary

// SpanType identifies what kind of structural region a Span marks.
type SpanType string

const (
	SpanHeading  SpanType = "heading"
	SpanFunction SpanType = "function"
	SpanMethod   SpanType = "method"
	SpanClass    SpanType = "class"
)

// Span is one structural region, 0-indexed inclusive line range. Nested
// definitions produce nested spans: the outer span's line range always
// contains the inner one's.
type Span struct {
	Type      SpanType
	StartLine int
	EndLine   int
	// Title is the heading text (markdown) or symbol name (code).
	Title string
	// Level is the heading depth (1-6); unused for code spans.
	Level int
}

// Detector produces an ordered sequence of boundary spans over a text
// buffer for one language/category. Detectors never error out to the
// caller: on any internal failure they return a nil span list and the
// chunker falls back to size-only chunking.
type Detector interface {
	Detect(source []byte) []Span
}
