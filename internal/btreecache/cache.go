// Package btreecache is a read-through, write-through page cache that sits
// in front of an *alloc.Allocator. It never changes which bytes a read
// returns — every write goes through to the allocator synchronously — so it
// is purely a performance layer and carries none of the tree's correctness
// invariants, matching the teacher's own LRU page cache in spirit.
package btreecache

import (
	"container/list"
	"sync"

	"go.uber.org/zap"

	"pagetree/internal/alloc"
	"pagetree/internal/page"
)

// Stats reports cache effectiveness, mirroring the teacher's IO-read
// accounting (trackIORead / GetIOReads) but scoped to the cache itself.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	ptr  page.Pointer
	leaf *page.Leaf
	dir  *page.Directory
}

// Cache wraps an Allocator with a bounded LRU of decoded leaf/directory
// pages. Metadata is never cached here; the allocator already keeps it
// in memory and persists it on every mutation.
type Cache struct {
	mu       sync.Mutex
	alloc    *alloc.Allocator
	capacity int
	ll       *list.List
	items    map[page.Pointer]*list.Element
	stats    Stats
}

// New wraps alloc with an LRU cache holding up to capacity pages.
func New(a *alloc.Allocator, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		alloc:    a,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[page.Pointer]*list.Element),
	}
}

func (c *Cache) touch(el *list.Element) {
	c.ll.MoveToFront(el)
}

func (c *Cache) evictIfNeeded() {
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			return
		}
		e := oldest.Value.(*entry)
		delete(c.items, e.ptr)
		c.ll.Remove(oldest)
		c.stats.Evictions++
	}
}

// GetLeaf returns the leaf at ptr, serving from cache when possible.
func (c *Cache) GetLeaf(ptr page.Pointer) (*page.Leaf, error) {
	c.mu.Lock()
	if el, ok := c.items[ptr]; ok {
		e := el.Value.(*entry)
		if e.leaf != nil {
			c.touch(el)
			c.stats.Hits++
			c.mu.Unlock()
			return e.leaf, nil
		}
	}
	c.stats.Misses++
	c.mu.Unlock()

	l, err := c.alloc.GetLeaf(ptr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	el := c.ll.PushFront(&entry{ptr: ptr, leaf: l})
	c.items[ptr] = el
	c.evictIfNeeded()
	c.mu.Unlock()
	return l, nil
}

// GetDirectory returns the directory at ptr, serving from cache when
// possible.
func (c *Cache) GetDirectory(ptr page.Pointer) (*page.Directory, error) {
	c.mu.Lock()
	if el, ok := c.items[ptr]; ok {
		e := el.Value.(*entry)
		if e.dir != nil {
			c.touch(el)
			c.stats.Hits++
			c.mu.Unlock()
			return e.dir, nil
		}
	}
	c.stats.Misses++
	c.mu.Unlock()

	d, err := c.alloc.GetDirectory(ptr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	el := c.ll.PushFront(&entry{ptr: ptr, dir: d})
	c.items[ptr] = el
	c.evictIfNeeded()
	c.mu.Unlock()
	return d, nil
}

// PutLeaf writes through to the allocator and refreshes the cache entry.
func (c *Cache) PutLeaf(ptr page.Pointer, l *page.Leaf) error {
	if err := c.alloc.PutLeaf(ptr, l); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[ptr]; ok {
		el.Value.(*entry).leaf = l
		c.touch(el)
		return nil
	}
	el := c.ll.PushFront(&entry{ptr: ptr, leaf: l})
	c.items[ptr] = el
	c.evictIfNeeded()
	return nil
}

// PutDirectory writes through to the allocator and refreshes the cache
// entry.
func (c *Cache) PutDirectory(ptr page.Pointer, d *page.Directory) error {
	if err := c.alloc.PutDirectory(ptr, d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[ptr]; ok {
		el.Value.(*entry).dir = d
		c.touch(el)
		return nil
	}
	el := c.ll.PushFront(&entry{ptr: ptr, dir: d})
	c.items[ptr] = el
	c.evictIfNeeded()
	return nil
}

// Invalidate drops ptr from the cache. Free calls it whenever a page is
// released back to the allocator; AllocLeaf/AllocDirectory instead overwrite
// the entry for the new pointer through PutLeaf/PutDirectory.
func (c *Cache) Invalidate(ptr page.Pointer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[ptr]; ok {
		delete(c.items, ptr)
		c.ll.Remove(el)
	}
}

// Stats returns a snapshot of cache hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// AllocLeaf allocates a new leaf page through the underlying allocator and
// seeds the cache with it.
func (c *Cache) AllocLeaf(l *page.Leaf) (page.Pointer, error) {
	ptr, err := c.alloc.Alloc(l)
	if err != nil {
		return 0, err
	}
	return ptr, c.PutLeaf(ptr, l)
}

// AllocDirectory allocates a new directory page through the underlying
// allocator and seeds the cache with it.
func (c *Cache) AllocDirectory(d *page.Directory) (page.Pointer, error) {
	ptr, err := c.alloc.Alloc(d)
	if err != nil {
		return 0, err
	}
	return ptr, c.PutDirectory(ptr, d)
}

// Free releases ptr back to the allocator's free-list and drops it from the
// cache.
func (c *Cache) Free(ptr page.Pointer) error {
	if err := c.alloc.Free(ptr); err != nil {
		return err
	}
	c.Invalidate(ptr)
	return nil
}

// Close closes the underlying allocator's file handle.
func (c *Cache) Close() error { return c.alloc.Close() }

// SetLogger attaches a structured logger to the underlying allocator, used
// to report page corruption before it surfaces as an error.
func (c *Cache) SetLogger(logger *zap.Logger) { c.alloc.SetLogger(logger) }

// Meta returns the allocator's in-memory metadata page.
func (c *Cache) Meta() *page.Meta { return c.alloc.Meta() }

// PersistMeta persists the metadata page, for callers that mutate
// Meta()'s fields directly (root/depth/data_head/data_tail changes).
func (c *Cache) PersistMeta() error { return c.alloc.PersistMeta() }
