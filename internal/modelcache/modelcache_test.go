package modelcache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	path   string
	closed *bool
}

func (h *fakeHandle) Close() error {
	*h.closed = true
	return nil
}

func TestGetOrLoad_CacheHit(t *testing.T) {
	loads := 0
	closed := false
	c := New(func(path string, params any) (Handle, error) {
		loads++
		return &fakeHandle{path: path, closed: &closed}, nil
	})

	h1, err := c.GetOrLoad("model-a", nil)
	require.NoError(t, err)
	h2, err := c.GetOrLoad("model-a", nil)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, loads)
}

func TestGetOrLoad_NeverExceedsCapacity(t *testing.T) {
	c := New(func(path string, params any) (Handle, error) {
		closed := false
		return &fakeHandle{path: path, closed: &closed}, nil
	})

	for i := 0; i < 10; i++ {
		_, err := c.GetOrLoad(fmt.Sprintf("model-%d", i), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, c.Len(), Capacity)
	}
}

func TestGetOrLoad_EvictsOldestUnreferenced(t *testing.T) {
	closedA, closedB, closedC := false, false, false
	c := New(func(path string, params any) (Handle, error) {
		switch path {
		case "a":
			return &fakeHandle{path: path, closed: &closedA}, nil
		case "b":
			return &fakeHandle{path: path, closed: &closedB}, nil
		default:
			return &fakeHandle{path: path, closed: &closedC}, nil
		}
	})

	_, err := c.GetOrLoad("a", nil)
	require.NoError(t, err)
	_, err = c.GetOrLoad("b", nil)
	require.NoError(t, err)
	c.Release("a")
	_, err = c.GetOrLoad("c", nil)
	require.NoError(t, err)

	assert.True(t, closedA, "oldest entry should be evicted and closed once unreferenced")
	assert.False(t, closedB)
	assert.False(t, closedC)
	assert.Equal(t, Capacity, c.Len())
}

func TestGetOrLoad_EvictionDefersCloseUntilLastRelease(t *testing.T) {
	closedA, closedB, closedC := false, false, false
	c := New(func(path string, params any) (Handle, error) {
		switch path {
		case "a":
			return &fakeHandle{path: path, closed: &closedA}, nil
		case "b":
			return &fakeHandle{path: path, closed: &closedB}, nil
		default:
			return &fakeHandle{path: path, closed: &closedC}, nil
		}
	})

	_, err := c.GetOrLoad("a", nil)
	require.NoError(t, err)
	_, err = c.GetOrLoad("b", nil)
	require.NoError(t, err)
	// "a" is still referenced by the caller above when "c" evicts it.
	_, err = c.GetOrLoad("c", nil)
	require.NoError(t, err)

	assert.False(t, closedA, "evicted entry must not close while a session still holds it")

	c.Release("a")
	assert.True(t, closedA, "last Release on an evicted entry should close it")
}

func TestRelease_DoesNotEvictImmediately(t *testing.T) {
	closed := false
	c := New(func(path string, params any) (Handle, error) {
		return &fakeHandle{path: path, closed: &closed}, nil
	})

	_, err := c.GetOrLoad("a", nil)
	require.NoError(t, err)
	c.Release("a")

	assert.Equal(t, 1, c.Len())
	assert.False(t, closed)
}
