// Package classify maps a filename or extension to a language and content
// category. It is a pure lookup table: total over all inputs, with unknown
// extensions falling back to Category "other".
package classify

import (
	"path/filepath"
	"strings"
)

// Category is the coarse content kind used to pick a boundary policy.
type Category string

const (
	CategoryCode          Category = "code"
	CategoryDocumentation Category = "documentation"
	CategoryConfig        Category = "config"
	CategoryStyle         Category = "style"
	CategoryData          Category = "data"
	CategoryOther         Category = "other"
)

// Info is the total classification result for one extension.
type Info struct {
	// Language is empty when the extension carries no language identity
	// (markdown, config, data, other).
	Language string
	Category Category
	// DisplayName is a human-friendly label, e.g. "TypeScript (TSX)".
	DisplayName string
	// TreeSitterSupported is true when internal/boundary can load a CST
	// parser for this language.
	TreeSitterSupported bool
	IsMarkdown           bool
	IsCode               bool
}

// entry is the table row; extensions map to one entry by first match.
type entry struct {
	language             string
	category             Category
	displayName          string
	treeSitterSupported  bool
	isMarkdown           bool
}

// table is built once at package init, keyed by lowercase extension
// including the leading dot. The closed language set is fixed: adding a
// language here requires a matching internal/boundary parser registration.
var table = map[string]entry{
	".js":  {language: "javascript", category: CategoryCode, displayName: "JavaScript", treeSitterSupported: true},
	".mjs": {language: "javascript", category: CategoryCode, displayName: "JavaScript", treeSitterSupported: true},
	".cjs": {language: "javascript", category: CategoryCode, displayName: "JavaScript", treeSitterSupported: true},
	".jsx": {language: "javascript", category: CategoryCode, displayName: "JavaScript (JSX)", treeSitterSupported: true},
	".ts":  {language: "typescript", category: CategoryCode, displayName: "TypeScript", treeSitterSupported: true},
	".tsx": {language: "tsx", category: CategoryCode, displayName: "TypeScript (TSX)", treeSitterSupported: true},
	".py":  {language: "python", category: CategoryCode, displayName: "Python", treeSitterSupported: true},
	".pyi": {language: "python", category: CategoryCode, displayName: "Python", treeSitterSupported: true},
	".go":  {language: "go", category: CategoryCode, displayName: "Go", treeSitterSupported: true},
	".rs":  {language: "rust", category: CategoryCode, displayName: "Rust"},
	".java": {language: "java", category: CategoryCode, displayName: "Java"},
	".rb":  {language: "ruby", category: CategoryCode, displayName: "Ruby"},
	".c":   {language: "c", category: CategoryCode, displayName: "C"},
	".h":   {language: "c", category: CategoryCode, displayName: "C header"},
	".cpp": {language: "cpp", category: CategoryCode, displayName: "C++"},
	".cc":  {language: "cpp", category: CategoryCode, displayName: "C++"},
	".cxx": {language: "cpp", category: CategoryCode, displayName: "C++"},
	".hpp": {language: "cpp", category: CategoryCode, displayName: "C++ header"},
	".html": {language: "html", category: CategoryCode, displayName: "HTML"},
	".htm": {language: "html", category: CategoryCode, displayName: "HTML"},
	".css": {language: "css", category: CategoryStyle, displayName: "CSS"},
	".scss": {language: "css", category: CategoryStyle, displayName: "SCSS"},
	".sass": {language: "css", category: CategoryStyle, displayName: "Sass"},
	".sh":  {language: "bash", category: CategoryCode, displayName: "Shell"},
	".bash": {language: "bash", category: CategoryCode, displayName: "Shell"},
	".vue": {language: "vue", category: CategoryCode, displayName: "Vue"},

	".md":  {category: CategoryDocumentation, displayName: "Markdown", isMarkdown: true},
	".mdx": {category: CategoryDocumentation, displayName: "MDX", isMarkdown: true},

	".json": {category: CategoryConfig, displayName: "JSON"},
	".yaml": {category: CategoryConfig, displayName: "YAML"},
	".yml":  {category: CategoryConfig, displayName: "YAML"},
	".toml": {category: CategoryConfig, displayName: "TOML"},
	".ini":  {category: CategoryConfig, displayName: "INI"},
	".env":  {category: CategoryConfig, displayName: "Env"},

	".csv": {category: CategoryData, displayName: "CSV"},
	".tsv": {category: CategoryData, displayName: "TSV"},
}

// Classify returns the total classification for a filename or bare
// extension. Unknown extensions (including no extension) map to
// {Category: CategoryOther}.
func Classify(nameOrExt string) Info {
	ext := normalizeExt(nameOrExt)

	e, ok := table[ext]
	if !ok {
		return Info{Category: CategoryOther}
	}

	return Info{
		Language:             e.language,
		Category:             e.category,
		DisplayName:          e.displayName,
		TreeSitterSupported:  e.treeSitterSupported,
		IsMarkdown:           e.isMarkdown,
		IsCode:               e.category == CategoryCode,
	}
}

// normalizeExt accepts either a bare extension ("go", ".go") or a filename
// ("main.go") and returns the lowercase extension with leading dot.
func normalizeExt(nameOrExt string) string {
	ext := nameOrExt
	if strings.ContainsRune(ext, '.') && !strings.HasPrefix(ext, ".") {
		ext = filepath.Ext(ext)
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}

// SupportedLanguages returns the closed set of language identifiers the
// classifier can ever return, sorted is not guaranteed.
func SupportedLanguages() []string {
	seen := make(map[string]bool)
	langs := make([]string, 0, 14)
	for _, e := range table {
		if e.language == "" || seen[e.language] {
			continue
		}
		seen[e.language] = true
		langs = append(langs, e.language)
	}
	return langs
}
