package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLRU_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU[int](0)
	assert.Error(t, err)
}

func TestLRU_SetGet(t *testing.T) {
	c, err := NewLRU[string](3)
	require.NoError(t, err)

	assert.True(t, c.Set("a", "1"))
	assert.False(t, c.Set("a", "2"), "update of existing key")

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, int64(1), c.Stats().Hits())
	assert.Equal(t, int64(1), c.Stats().Misses())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, err := NewLRU[int](3, WithEvictCallback[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the oldest.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions())
}

func TestLRU_DeleteInvokesCallback(t *testing.T) {
	var evicted []string
	c, err := NewLRU[int](2, WithEvictCallback[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	c.Set("a", 1)
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, []string{"a"}, evicted)
}

func TestLRU_ClearInvokesCallbackForAll(t *testing.T) {
	var evicted []string
	c, err := NewLRU[int](3, WithEvictCallback[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	assert.Len(t, evicted, 2)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_KeysInRecencyOrder(t *testing.T) {
	c, err := NewLRU[int](3)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Get("a")

	assert.Equal(t, []string{"a", "c", "b"}, c.Keys())
}

func TestLRU_CallbackMayReenter(t *testing.T) {
	var c *LRU[int]
	var err error
	c, err = NewLRU[int](1, WithEvictCallback[int](func(string, int) {
		// Re-entering the cache from the callback must not deadlock.
		c.Len()
	}))
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 1, c.Len())
}
