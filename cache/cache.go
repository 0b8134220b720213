// Copyright (c) 2014-2018 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/bitmark-inc/chainstore/chain"
)

// DefaultSize is the cache_size default used when a caller passes a
// non-positive capacity.
const DefaultSize = 1000

// Entry is the public view of a cache slot, returned by Entry.
type Entry struct {
	Chain chain.Chain
	Refs  uint32
}

type entry struct {
	id    string
	chain chain.Chain
	refs  uint32
}

// Cache is the reference-counted, capacity-bounded chain cache.
// Entries with refs == 0 are evictable and tracked by an LRU; entries
// with refs > 0 are pinned and exempt from eviction, so the cache may
// soft-exceed capacity when every live entry is pinned.
type Cache struct {
	mu       sync.Mutex
	pinned   map[string]*entry
	lru      *lru.Cache
	onError  func(error)
	capacity int
	removing bool // set while Increment or Delete takes an entry out of the LRU
}

// New builds a Cache with the given capacity. onError, if non-nil, is
// called (from its own goroutine) whenever closing an evicted chain
// fails; that goroutine holds no Cache or LRU lock.
func New(capacity int, onError func(error)) *Cache {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	c := &Cache{
		pinned:   make(map[string]*entry),
		onError:  onError,
		capacity: capacity,
	}
	backing, err := lru.NewWithEvict(capacity, c.onEvicted)
	if err != nil {
		// capacity is always > 0 here, so NewWithEvict cannot fail.
		panic(err)
	}
	c.lru = backing
	return c
}

func (c *Cache) onEvicted(key interface{}, value interface{}) {
	if c.removing {
		// not a capacity eviction: the entry was moved or deleted
		return
	}
	e := value.(*entry)
	onError := c.onError
	go func() {
		if err := e.chain.Close(context.Background()); err != nil && onError != nil {
			onError(err)
		}
	}()
}

// Get returns the cached chain for id, touching the LRU if the entry
// is currently evictable.
func (c *Cache) Get(id string) (chain.Chain, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.pinned[id]; ok {
		return e.chain, true
	}
	if v, ok := c.lru.Get(id); ok {
		return v.(*entry).chain, true
	}
	return nil, false
}

// Has reports membership without any LRU side effect.
func (c *Cache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pinned[id]; ok {
		return true
	}
	return c.lru.Contains(id)
}

// Entry returns the full {chain, refs} record for id, if present.
func (c *Cache) Entry(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entryLocked(id)
}

func (c *Cache) entryLocked(id string) (Entry, bool) {
	if e, ok := c.pinned[id]; ok {
		return Entry{Chain: e.chain, Refs: e.refs}, true
	}
	if v, ok := c.lru.Peek(id); ok {
		e := v.(*entry)
		return Entry{Chain: e.chain, Refs: e.refs}, true
	}
	return Entry{}, false
}

// Set inserts a freshly instantiated chain with refs = 0. If this
// pushes the evictable set over capacity, the LRU evicts and closes
// its least-recently-used zero-ref entry (pinned entries are never
// considered).
func (c *Cache) Set(id string, ch chain.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pinned[id]; ok {
		return // already present and owned; never happens on the get() path (cache checked first)
	}
	c.lru.Add(id, &entry{id: id, chain: ch, refs: 0})
}

// Increment adds one reference to id, moving it out of the evictable
// LRU into the pinned set the first time it is referenced.
func (c *Cache) Increment(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.pinned[id]; ok {
		e.refs++
		return
	}
	if v, ok := c.lru.Peek(id); ok {
		e := v.(*entry)
		c.removing = true
		c.lru.Remove(id)
		c.removing = false
		e.refs = 1
		c.pinned[id] = e
	}
}

// Decrement removes one reference from id. Reaching zero does not
// evict immediately; the entry simply becomes LRU-eligible again.
func (c *Cache) Decrement(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.pinned[id]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 {
		delete(c.pinned, id)
		c.lru.Add(id, e)
	}
}

// Delete removes id unconditionally, from whichever of the pinned map
// or LRU it currently lives in. It is a no-op if id is already
// absent, which callers rely on: a chain's error/close events can
// race and both attempt to delete the same id.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pinned, id)
	c.removing = true
	c.lru.Remove(id)
	c.removing = false
}

// Len reports the total number of entries, pinned and evictable.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pinned) + c.lru.Len()
}

// Capacity reports the configured capacity passed to New.
func (c *Cache) Capacity() int {
	return c.capacity
}

// PinnedIDs snapshots the ids of every entry with refs > 0, used by
// the root namespaced view to replicate the whole store.
func (c *Cache) PinnedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.pinned))
	for id := range c.pinned {
		ids = append(ids, id)
	}
	return ids
}

// Keys snapshots every id currently held, pinned or evictable, used by
// the engine to enumerate every live chain on shutdown.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.pinned)+c.lru.Len())
	for id := range c.pinned {
		ids = append(ids, id)
	}
	for _, id := range c.lru.Keys() {
		ids = append(ids, id.(string))
	}
	return ids
}
