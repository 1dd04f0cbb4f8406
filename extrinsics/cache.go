package extrinsics

import (
	"container/list"
	"sync"
)

// pairKey identifies one directed lookup between two canonical nodes.
type pairKey struct {
	from, to int
}

// pathEntry is a memoized lookup result, valid only for the graph generation
// it was computed under.
type pathEntry struct {
	key pairKey
	gen uint64
	tf  Transform
}

// pathCache is a small LRU over composed lookup results. Entries from older
// graph generations are treated as misses and dropped, so mutations never
// serve stale paths.
type pathCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[pairKey]*list.Element
	order   *list.List
}

func newPathCache(maxSize int) *pathCache {
	return &pathCache{
		maxSize: maxSize,
		items:   make(map[pairKey]*list.Element),
		order:   list.New(),
	}
}

// get returns the cached transform for the pair if it was computed under the
// current generation.
func (c *pathCache) get(key pairKey, gen uint64) (Transform, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return Transform{}, false
	}

	entry := element.Value.(*pathEntry)
	if entry.gen != gen {
		c.order.Remove(element)
		delete(c.items, key)
		return Transform{}, false
	}

	c.order.MoveToFront(element)
	return entry.tf, true
}

// put stores a computed transform under the current generation.
func (c *pathCache) put(key pairKey, gen uint64, tf Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*pathEntry)
		entry.gen = gen
		entry.tf = tf
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&pathEntry{key: key, gen: gen, tf: tf})
	c.items[key] = element

	if len(c.items) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*pathEntry).key)
		}
	}
}

// size returns the number of cached pairs, current or stale.
func (c *pathCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
