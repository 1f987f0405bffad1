package boundary

import (
	"context"

	"github.com/veyra-dev/veyra/internal/classify"
)

// Detect dispatches to the markdown, code, or empty strategy according to
// info, the classification of the source's filename. It never returns an
// error: detector failures degrade to an empty span list and the caller
// (internal/chunk) falls back to size-only chunking.
func Detect(ctx context.Context, source []byte, info classify.Info) []Span {
	switch {
	case info.IsMarkdown:
		return DetectMarkdown(source)
	case info.TreeSitterSupported && info.Language != "":
		return DetectCode(ctx, source, info.Language)
	default:
		return nil
	}
}
