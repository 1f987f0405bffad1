package boundary

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireParser_ConcurrentFirstUseSharesResult(t *testing.T) {
	ReleaseAll()
	defer ReleaseAll()

	const n = 16
	var wg sync.WaitGroup
	parsers := make([]any, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := acquireParser("go")
			require.NoError(t, err)
			parsers[i] = p
		}(i)
	}
	wg.Wait()

	first := parsers[0]
	for _, p := range parsers {
		assert.Same(t, first, p)
	}
}

func TestAcquireParser_UnsupportedLanguage(t *testing.T) {
	_, err := acquireParser("cobol")
	assert.Error(t, err)
}
