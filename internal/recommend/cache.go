package recommend

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sitematch/backend/internal/search"
)

// SpaceCache keeps recently built vector spaces keyed by category selection
// and corpus version. Concurrent builds of the same key run once.
type SpaceCache struct {
	capacity int

	mu      sync.Mutex
	entries map[string]*search.Space
	order   []string
	hits    int64
	misses  int64

	group singleflight.Group
}

// NewSpaceCache creates a cache holding at most capacity spaces.
func NewSpaceCache(capacity int) *SpaceCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &SpaceCache{
		capacity: capacity,
		entries:  make(map[string]*search.Space),
	}
}

// CacheKey builds the key for a category selection over a corpus version.
func CacheKey(program, degree, version string) string {
	return program + "\x00" + degree + "\x00" + version
}

// GetOrBuild returns the cached space for key or builds and stores it.
func (c *SpaceCache) GetOrBuild(key string, build func() (*search.Space, error)) (*search.Space, error) {
	c.mu.Lock()
	if space, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return space, nil
	}
	c.misses++
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		space, err := build()
		if err != nil {
			return nil, err
		}
		c.put(key, space)
		return space, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*search.Space), nil
}

func (c *SpaceCache) put(key string, space *search.Space) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = space
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = space
	c.order = append(c.order, key)
}

// Len returns the number of cached spaces.
func (c *SpaceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache hit and miss counts.
func (c *SpaceCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
