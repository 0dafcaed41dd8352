// Package vcache provides an LRU cache of loaded Views, so that retries of a
// Chunk on the same worker do not fetch its data again.
package vcache

import (
	"container/list"
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-sif/accrue"
)

// lru is an LRU cache for Views, keyed by Chunk fingerprint
type lru struct {
	loader     accrue.ChunkLoader
	size       int
	vlocks     *locker.Locker
	vmapLock   sync.Mutex
	vmap       map[uint64]*list.Element
	recentList *list.List // back is oldest, front is newest
	hits       int64
	misses     int64
}

type cachedView struct {
	key   uint64
	value accrue.View
}

// CachingLoader is a ChunkLoader which remembers recently loaded Views
type CachingLoader interface {
	accrue.ChunkLoader
	// Stats returns the number of cache hits and misses so far
	Stats() (hits int64, misses int64)
	// Len returns the number of cached Views
	Len() int
}

// NewLRU wraps a ChunkLoader with an LRU cache holding up to size Views.
// Loaded Views are shared between Tasks, so Processors must not modify them.
func NewLRU(loader accrue.ChunkLoader, size int) CachingLoader {
	if size < 1 {
		log.Panicf("View cache size %d must be positive", size)
	}
	return &lru{
		loader:     loader,
		size:       size,
		vlocks:     locker.New(),
		vmap:       make(map[uint64]*list.Element),
		recentList: list.New(),
	}
}

// Load returns a cached View for the Chunk, or loads and caches it. Concurrent
// loads of the same Chunk wait for each other instead of fetching twice.
func (c *lru) Load(ctx context.Context, chunk accrue.Chunk) (accrue.View, error) {
	key := chunk.Key()
	lockKey := strconv.FormatUint(key, 16)
	c.vlocks.Lock(lockKey)
	defer c.vlocks.Unlock(lockKey)

	if v, ok := c.get(key); ok {
		atomic.AddInt64(&c.hits, 1)
		return v, nil
	}
	atomic.AddInt64(&c.misses, 1)
	v, err := c.loader.Load(ctx, chunk)
	if err != nil || v == nil {
		return v, err
	}
	c.add(key, v)
	return v, nil
}

func (c *lru) get(key uint64) (accrue.View, bool) {
	c.vmapLock.Lock()
	defer c.vmapLock.Unlock()
	e, ok := c.vmap[key]
	if !ok {
		return nil, false
	}
	c.recentList.MoveToFront(e)
	return e.Value.(*cachedView).value, true
}

func (c *lru) add(key uint64, value accrue.View) {
	c.vmapLock.Lock()
	defer c.vmapLock.Unlock()
	c.vmap[key] = c.recentList.PushFront(&cachedView{key: key, value: value})
	for c.recentList.Len() > c.size {
		toRemove := c.recentList.Back()
		c.recentList.Remove(toRemove)
		delete(c.vmap, toRemove.Value.(*cachedView).key)
	}
}

func (c *lru) Stats() (int64, int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *lru) Len() int {
	c.vmapLock.Lock()
	defer c.vmapLock.Unlock()
	return c.recentList.Len()
}
