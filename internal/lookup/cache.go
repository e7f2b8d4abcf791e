package lookup

import (
	"sync"
	"time"
)

type cacheItem struct {
	product    Product
	found      bool
	expiration time.Time
}

// memoryCache is a thread-safe TTL cache of lookup results. Misses are cached
// too so repeated scans of an unknown barcode stay off the network.
type memoryCache struct {
	data  map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
	mutex sync.RWMutex
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		data: make(map[string]cacheItem),
		ttl:  ttl,
		now:  time.Now,
	}
}

// get returns the cached result. ok is false on a miss or an expired item.
func (c *memoryCache) get(upc string) (item cacheItem, ok bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[upc]
	if !exists || c.now().After(item.expiration) {
		return cacheItem{}, false
	}
	return item, true
}

func (c *memoryCache) set(upc string, p Product, found bool) {
	if c.ttl <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Expired entries are dropped on write
	now := c.now()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}
	c.data[upc] = cacheItem{product: p, found: found, expiration: now.Add(c.ttl)}
}

func (c *memoryCache) size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
