package query

import "sync"

// cacheEntry stamps a cached stage result with the content hash of the
// input it was computed from, alongside the result or the error the
// computation produced. Both successes and errors are cached, so a
// query that errors stays fast on repeat just like one that succeeds.
type cacheEntry[T any] struct {
	inputHash string
	value     T
	err       error
}

// stageCache is a single-dimension (keyed by path) memo table, used for
// the tokens/ast/types stages. generate_ir additionally keys on a
// target triple — a second dimension this generic cache doesn't model —
// so Database keeps IR entries in its own path->target->entry map
// instead (see database.go's irGet/irPut).
type stageCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[T]
}

func newStageCache[T any]() *stageCache[T] {
	return &stageCache[T]{entries: make(map[string]*cacheEntry[T])}
}

// get returns the cached value/err for path iff its stamped input hash
// still matches hash: a cache entry is valid iff the hash of every
// input it was computed from matches the current hash.
func (c *stageCache[T]) get(path, hash string) (value T, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[path]
	if !found || e.inputHash != hash {
		var zero T
		return zero, nil, false
	}
	return e.value, e.err, true
}

func (c *stageCache[T]) put(path, hash string, value T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = &cacheEntry[T]{inputHash: hash, value: value, err: err}
}

func (c *stageCache[T]) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

func (c *stageCache[T]) isCached(path, hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	return ok && e.inputHash == hash
}

func (c *stageCache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry[T])
}
