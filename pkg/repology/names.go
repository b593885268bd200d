package repology

import (
	"context"
	"sync"
)

// NamesCache memoizes the unique-project set for the lifetime of a process.
//
// The fetch runs at most once, on first use; afterwards the set is read-only.
// Population is tracked with an explicit flag rather than by emptiness: an
// empty set is a perfectly valid fetch result and must not trigger a second
// fetch on every lookup.
type NamesCache struct {
	mu        sync.Mutex
	fetch     func(ctx context.Context) (map[string]struct{}, error)
	names     map[string]struct{}
	populated bool
}

// NewNamesCache creates a cache around the given fetch function,
// typically [Client.UniqueProjects].
func NewNamesCache(fetch func(ctx context.Context) (map[string]struct{}, error)) *NamesCache {
	return &NamesCache{fetch: fetch}
}

// Contains reports whether name is in the unique-project set, fetching the
// set on first use. A failed fetch leaves the cache unpopulated and is
// returned to the caller, which treats it as fatal.
func (c *NamesCache) Contains(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.populated {
		names, err := c.fetch(ctx)
		if err != nil {
			return false, err
		}
		c.names = names
		c.populated = true
	}

	_, ok := c.names[name]
	return ok, nil
}

// Populated reports whether the set has been fetched.
func (c *NamesCache) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}
