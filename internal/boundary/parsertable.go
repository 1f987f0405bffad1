package boundary

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/singleflight"
)

// parserTable is the process-wide map from language name to a loaded
// tree-sitter parser. First use lazily initializes the parser; concurrent
// initializers for the same language collapse into one in-flight call via
// group, so a failed load is retried by the next caller instead of being
// cached forever the way sync.Once would cache it.
var (
	parserTableMu sync.RWMutex
	parserTable   = make(map[string]*sitter.Parser)
	group         singleflight.Group
)

// acquireParser returns the shared parser for language, initializing it
// on first use. Returns an error if the language has no registered spec.
func acquireParser(language string) (*sitter.Parser, error) {
	parserTableMu.RLock()
	p, ok := parserTable[language]
	parserTableMu.RUnlock()
	if ok {
		return p, nil
	}

	spec, ok := langSpecs[language]
	if !ok {
		return nil, errUnsupportedLanguage(language)
	}

	result, err, _ := group.Do(language, func() (any, error) {
		parserTableMu.RLock()
		if existing, ok := parserTable[language]; ok {
			parserTableMu.RUnlock()
			return existing, nil
		}
		parserTableMu.RUnlock()

		p := sitter.NewParser()
		p.SetLanguage(spec.sitterLang)

		parserTableMu.Lock()
		parserTable[language] = p
		parserTableMu.Unlock()

		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*sitter.Parser), nil
}

type unsupportedLanguageError string

func (e unsupportedLanguageError) Error() string {
	return "boundary: unsupported language: " + string(e)
}

func errUnsupportedLanguage(language string) error {
	return unsupportedLanguageError(language)
}

// ReleaseAll disposes every loaded parser. Intended for test teardown and
// process shutdown; safe to call even if nothing was ever loaded.
func ReleaseAll() {
	parserTableMu.Lock()
	defer parserTableMu.Unlock()
	for lang, p := range parserTable {
		p.Close()
		delete(parserTable, lang)
	}
}
