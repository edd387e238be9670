package id

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUniqueAndSortable(t *testing.T) {
	t.Parallel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		require.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids generated in sequence sort chronologically")
}

func TestNewConcurrent(t *testing.T) {
	t.Parallel()

	const n = 50
	var wg sync.WaitGroup
	out := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = New()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range out {
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
