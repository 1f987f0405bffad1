package boundary

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// DetectCode walks the CST of source for the given tree-sitter-supported
// language and emits spans for function, method, and class definitions
// only. Nested definitions are emitted with the outer span containing the
// inner one. On any failure (unsupported language, parse error) it
// returns a nil span list; callers fall back to size-only chunking.
func DetectCode(ctx context.Context, source []byte, language string) []Span {
	spec, ok := langSpecs[language]
	if !ok {
		return nil
	}

	parser, err := acquireParser(language)
	if err != nil {
		return nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil
	}

	var spans []Span
	walkSymbolNodes(tree.RootNode(), source, spec, false, &spans)
	return spans
}

// walkSymbolNodes performs a depth-first walk, emitting a Span for every
// function/method/class node. insideClass tracks whether the current node
// is nested under a class definition, which lets Python's single
// function_definition node type disambiguate into function vs method.
func walkSymbolNodes(node *sitter.Node, source []byte, spec langSpec, insideClass bool, spans *[]Span) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	childInsideClass := insideClass

	switch {
	case spec.classTypes[nodeType]:
		*spans = append(*spans, spanFromNode(node, source, SpanClass, spec))
		childInsideClass = true
	case spec.methodTypes[nodeType]:
		*spans = append(*spans, spanFromNode(node, source, SpanMethod, spec))
	case spec.functionTypes[nodeType]:
		if insideClass && len(spec.methodTypes) == 0 {
			*spans = append(*spans, spanFromNode(node, source, SpanMethod, spec))
		} else {
			*spans = append(*spans, spanFromNode(node, source, SpanFunction, spec))
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkSymbolNodes(node.Child(i), source, spec, childInsideClass, spans)
	}
}

func spanFromNode(node *sitter.Node, source []byte, typ SpanType, spec langSpec) Span {
	return Span{
		Type:      typ,
		StartLine: int(node.StartPoint().Row),
		EndLine:   int(node.EndPoint().Row),
		Title:     symbolName(node, source, spec),
	}
}

func symbolName(node *sitter.Node, source []byte, spec langSpec) string {
	nameNode := node.ChildByFieldName(spec.nameField)
	if nameNode == nil {
		return ""
	}
	start, end := nameNode.StartByte(), nameNode.EndByte()
	if end <= start || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}
