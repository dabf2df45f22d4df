package cache

import (
	"container/list"
	"sync"

	"github.com/UnknownOlympus/compass/internal/models"
)

// lruCache is a thread-safe LRU of cache entries. Entries are write-once:
// putIfAbsent never replaces a stored value, it only refreshes recency.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
}

type lruItem struct {
	key   string
	value models.CacheEntry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return models.CacheEntry{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruItem).value, true
}

func (c *lruCache) putIfAbsent(key string, value models.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&lruItem{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruItem).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
