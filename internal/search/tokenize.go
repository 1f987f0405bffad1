package search

import (
	"strings"
	"unicode"
)

// DefaultStopWords is the fixed stop-word table keyword search filters
// before scoring: English function words, common code identifiers, and a
// small Japanese particle set, extending the teacher's code stop-word list
// with the non-code coverage SPEC_FULL's keyword search requires.
var DefaultStopWords = buildStopWordSet(
	// Common code identifiers (teacher's DefaultCodeStopWords).
	"var", "let", "const", "func", "function", "def", "class", "return",
	"if", "else", "for", "while", "data", "result", "value", "item", "key",
	"err", "ctx", "tmp",
	// English function words.
	"the", "a", "an", "and", "or", "but", "of", "to", "in", "on", "at",
	"is", "are", "was", "were", "be", "been", "being", "with", "as",
	"by", "from", "that", "this", "it", "its", "their", "they",
	// Small fixed Japanese particle set.
	"の", "は", "が", "を", "に", "と", "で", "た", "し", "て",
)

// Tokenize exposes the same tokenization tokenize() uses internally,
// filtered by DefaultStopWords, for callers outside this package that
// need a consistent vocabulary extraction (the query orchestrator's
// topic/coverage metrics).
func Tokenize(text string) []string {
	return tokenize(text, DefaultStopWords)
}

func buildStopWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokenize splits text into lowercase tokens, breaking camelCase and
// snake_case identifiers into their parts and dropping stop words.
// Grounded on the teacher's TokenizeCode/SplitCamelCase/FilterStopWords.
func tokenize(text string, stopWords map[string]struct{}) []string {
	var tokens []string
	for _, raw := range splitOnNonWord(text) {
		for _, part := range splitCamelCase(raw) {
			part = strings.ToLower(part)
			if part == "" {
				continue
			}
			if _, stop := stopWords[part]; stop {
				continue
			}
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// splitOnNonWord breaks text on anything that isn't a letter, digit, or
// underscore, further splitting underscore-joined identifiers. CJK
// characters (Han/Hiragana/Katakana) have no space-delimited word
// boundaries, so each is emitted as its own single-rune token rather than
// merged into a run; that's coarse compared to a real morphological
// tokenizer but enough to let the fixed Japanese particle list filter them.
func splitOnNonWord(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == '_':
			flush()
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

// splitCamelCase splits "fooBarBaz" into ["foo", "Bar", "Baz"], leaving
// non-camelCase tokens (including runs of non-Latin script) untouched.
func splitCamelCase(token string) []string {
	runes := []rune(token)
	if len(runes) == 0 {
		return nil
	}
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
