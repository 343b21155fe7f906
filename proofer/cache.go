package proofer

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is the shared proofer cache: an LRU keyed by request-shaped keys
// with per-entry expiry and a read-only mode while worker-thread trie
// construction is in flight. Each entry carries a use counter that Cleanup
// respects, but Get raises it only while Get itself runs, so values handed
// to live contexts do not pin their entries against eviction.
type Cache struct {
	mu           sync.Mutex
	lru          *lru.Cache
	ttl          time.Duration
	workerActive atomic.Int32
}

type cacheEntry struct {
	value      []byte
	timestamp  int64
	useCounter int32
}

// NewCache builds a shared cache with the given capacity and entry TTL.
func NewCache(size int, ttl time.Duration) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl}, nil
}

// Get returns a live entry's value. Invalidated entries (timestamp zero)
// and expired ones are skipped.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*cacheEntry)
	if e.timestamp == 0 || e.timestamp < time.Now().Unix() {
		return nil, false
	}
	e.useCounter++
	defer func() { e.useCounter-- }()
	return e.value, true
}

// Put stores a value unless a worker thread holds the cache read-only.
func (c *Cache) Put(key string, value []byte) {
	if c.workerActive.Load() > 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &cacheEntry{
		value:     value,
		timestamp: time.Now().Add(c.ttl).Unix(),
	})
}

// Invalidate marks an entry dead without evicting it under a reader.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.lru.Peek(key); ok {
		v.(*cacheEntry).timestamp = 0
	}
}

// Cleanup evicts expired, unreferenced entries.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().Unix()
	for _, k := range c.lru.Keys() {
		v, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		e := v.(*cacheEntry)
		if e.useCounter == 0 && (e.timestamp == 0 || e.timestamp < now) {
			c.lru.Remove(k)
		}
	}
}

// BeginWorker marks worker-thread trie construction active: the cache
// becomes read-only until EndWorker.
func (c *Cache) BeginWorker() { c.workerActive.Add(1) }

// EndWorker releases the worker-thread read-only gate.
func (c *Cache) EndWorker() { c.workerActive.Add(-1) }
