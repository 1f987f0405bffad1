package boundary

import (
	"regexp"
	"strings"
)

// headerPattern matches ATX headers: # Title, ## Title, ... up to level 6.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// DetectMarkdown walks heading lines into a hierarchical outline. A span's
// end is the line before the next heading of equal-or-lower level, or EOF.
func DetectMarkdown(source []byte) []Span {
	lines := strings.Split(string(source), "\n")

	var spans []Span
	var open []int // indices into spans, one per currently-open level (1-6)

	closeLevelsFrom := func(level int, endLine int) {
		for len(open) > 0 {
			lastIdx := open[len(open)-1]
			if spans[lastIdx].Level < level {
				break
			}
			spans[lastIdx].EndLine = endLine
			open = open[:len(open)-1]
		}
	}

	for lineNum, line := range lines {
		match := headerPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		level := len(match[1])
		title := strings.TrimSpace(match[2])

		closeLevelsFrom(level, lineNum-1)

		spans = append(spans, Span{
			Type:      SpanHeading,
			StartLine: lineNum,
			EndLine:   len(lines) - 1,
			Title:     title,
			Level:     level,
		})
		open = append(open, len(spans)-1)
	}

	closeLevelsFrom(1, len(lines)-1)

	return spans
}
