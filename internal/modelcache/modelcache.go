// Package modelcache bounds how many loaded models stay resident at once.
// Grounded on the original service's GenerationService.model_cache: a mutex
// around a capacity-2 map, evicting one arbitrary entry at capacity before
// loading the miss.
package modelcache

import (
	"sync"

	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// Capacity matches the original's MAX_CACHED_MODELS.
const Capacity = 2

// Handle is an opaque, reference-counted model handle. Implementations are
// supplied by the loader function passed to New; the cache never inspects
// the handle beyond calling Close when it's evicted and no longer
// referenced.
type Handle interface {
	Close() error
}

// Loader loads a fresh Handle for a model path. params is passed through
// unexamined from the GetOrLoad call that triggered the miss, matching the
// original contract's get_or_load(path, params).
type Loader func(path string, params any) (Handle, error)

// Cache is a bounded, insertion-order FIFO cache of loaded model handles.
// The original service's eviction picks "cache.keys().next()" — the first
// key a Rust HashMap happens to iterate, which is arbitrary but stable
// within a process run. An explicit insertion-order slice reproduces that
// same "oldest distinct insertion evicted first" behavior deterministically
// instead of relying on Go's randomized map iteration order.
type Cache struct {
	mu       sync.Mutex
	load     Loader
	order    []string
	entries  map[string]*entry
	draining []*entry
}

type entry struct {
	path     string
	handle   Handle
	refCount int
}

// New returns an empty cache that uses load to fill misses.
func New(load Loader) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[string]*entry),
	}
}

// GetOrLoad returns the handle for path, loading and possibly evicting if
// it isn't already cached. The mutex is held for the duration of a load,
// matching the original's "blocks are rare" tradeoff: only one new model
// load can be in flight at a time per cache.
func (c *Cache) GetOrLoad(path string, params any) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		e.refCount++
		return e.handle, nil
	}

	if len(c.order) >= Capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		if e := c.entries[oldest]; e != nil {
			delete(c.entries, oldest)
			c.evict(e)
		}
	}

	handle, err := c.load(path, params)
	if err != nil {
		return nil, rgerrors.Wrap(rgerrors.KindModel, "load model "+path, err)
	}

	c.entries[path] = &entry{path: path, handle: handle, refCount: 1}
	c.order = append(c.order, path)
	return handle, nil
}

// evict drops the cache's own strong reference to e. If a session is still
// holding a reference (refCount > 0), e is kept alive in c.draining until
// that session's matching Release brings it to zero, matching the Rust
// Arc's drop-on-eviction behavior: the cache gives up its handle, but the
// model isn't closed out from under whoever is still decoding through it.
func (c *Cache) evict(e *entry) {
	if e.refCount <= 0 {
		_ = e.handle.Close()
		return
	}
	c.draining = append(c.draining, e)
}

// Release drops one reference to path's handle. If the entry has already
// been evicted from the live cache and this is its last outstanding
// reference, Release closes it.
func (c *Cache) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		if e.refCount > 0 {
			e.refCount--
		}
		return
	}

	for i, e := range c.draining {
		if e.path != path || e.refCount <= 0 {
			continue
		}
		e.refCount--
		if e.refCount <= 0 {
			_ = e.handle.Close()
			c.draining = append(c.draining[:i], c.draining[i+1:]...)
		}
		return
	}
}

// Len reports how many distinct models are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Clear evicts and closes every entry with no outstanding references,
// matching the original's clear_model_cache command.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.order[:0]
	for _, path := range c.order {
		e := c.entries[path]
		if e.refCount > 0 {
			remaining = append(remaining, path)
			continue
		}
		delete(c.entries, path)
		_ = e.handle.Close()
	}
	c.order = remaining
}
