package verify

import (
	"container/list"
	"sync"
)

// cacheKey identifies one memoized verdict. Keyed by the raw title as
// submitted — normalization happens inside the pipeline.
type cacheKey struct {
	title    string
	language string
}

// resultCache is a bounded LRU of full verdicts. It is invalidated wholesale
// whenever the title index mutates, so a cached verdict is never stale with
// respect to the corpus.
type resultCache struct {
	mu    sync.Mutex
	limit int
	items map[cacheKey]*list.Element
	order *list.List // front = most recently used
}

type cacheEntry struct {
	key     cacheKey
	verdict Verdict
}

func newResultCache(limit int) *resultCache {
	if limit <= 0 {
		limit = 5000
	}
	return &resultCache{
		limit: limit,
		items: make(map[cacheKey]*list.Element),
		order: list.New(),
	}
}

func (c *resultCache) get(key cacheKey) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return Verdict{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(cacheEntry).verdict, true
}

func (c *resultCache) put(key cacheKey, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value = cacheEntry{key: key, verdict: v}
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(cacheEntry{key: key, verdict: v})
	if c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(cacheEntry).key)
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[cacheKey]*list.Element)
	c.order.Init()
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
