package boundary

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// langSpec describes, for one tree-sitter-supported language, which CST
// node types count as function/method/class definitions and the field
// tree-sitter exposes the definition's name under.
type langSpec struct {
	sitterLang    *sitter.Language
	functionTypes map[string]bool
	methodTypes   map[string]bool
	classTypes    map[string]bool
	nameField     string
}

func toSet(types ...string) map[string]bool {
	s := make(map[string]bool, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

// langSpecs covers the closed tree-sitter-supported subset of
// internal/classify's language set: go, typescript, tsx, javascript,
// python. The remaining classified languages (rust, java, ruby, c, cpp,
// html, css, bash, vue) have no parser binding here, so DetectCode
// returns an empty span list for them.
var langSpecs = map[string]langSpec{
	"go": {
		sitterLang:    golang.GetLanguage(),
		functionTypes: toSet("function_declaration"),
		methodTypes:   toSet("method_declaration"),
		classTypes:    toSet(),
		nameField:     "name",
	},
	"typescript": {
		sitterLang:    typescript.GetLanguage(),
		functionTypes: toSet("function_declaration"),
		methodTypes:   toSet("method_definition"),
		classTypes:    toSet("class_declaration"),
		nameField:     "name",
	},
	"tsx": {
		sitterLang:    tsx.GetLanguage(),
		functionTypes: toSet("function_declaration"),
		methodTypes:   toSet("method_definition"),
		classTypes:    toSet("class_declaration"),
		nameField:     "name",
	},
	"javascript": {
		sitterLang:    javascript.GetLanguage(),
		functionTypes: toSet("function_declaration", "function"),
		methodTypes:   toSet("method_definition"),
		classTypes:    toSet("class_declaration"),
		nameField:     "name",
	},
	"python": {
		sitterLang:    python.GetLanguage(),
		functionTypes: toSet("function_definition"),
		methodTypes:   toSet(),
		classTypes:    toSet("class_definition"),
		nameField:     "name",
	},
}
