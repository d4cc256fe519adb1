package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/resource"
)

// LRU is a mutex-guarded least-recently-used CardCache.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	id   string
	card *vcardio.Card
	cost int64
}

// NewLRU creates a cache holding up to capacity bytes of cards. If rc
// is non-nil, cached bytes are reserved against its memory budget.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached card and marks it recently used.
func (c *LRU) Get(id string) (*vcardio.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[id]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).card, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a card at the given cost, evicting old entries to make
// room. Cards costing more than the whole capacity are not cached.
// When the controller denies the reservation the card is dropped
// rather than blocking.
func (c *LRU) Set(id string, card *vcardio.Card, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[id]; ok {
		c.evictList.MoveToFront(ent)

		oldCost := ent.Value.(*entry).cost
		if cost > oldCost && !c.tryAcquire(cost-oldCost) {
			// Growth denied; the stale entry would serve wrong
			// data, so drop it instead.
			c.removeElement(ent)
			return
		}
		if cost < oldCost {
			c.release(oldCost - cost)
		}

		ent.Value.(*entry).card = card
		ent.Value.(*entry).cost = cost
		c.size += cost - oldCost
		c.evict()
		return
	}

	if cost > c.capacity {
		return
	}

	// Evict locally first so the controller sees released memory
	// before the new reservation.
	for c.size+cost > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	if !c.tryAcquire(cost) {
		return
	}

	c.items[id] = c.evictList.PushFront(&entry{id: id, card: card, cost: cost})
	c.size += cost
}

// Remove drops one entry.
func (c *LRU) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[id]; ok {
		c.removeElement(ent)
	}
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(id string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for id, element := range c.items {
		if predicate(id) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Size returns the summed cost of the cached cards.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached cards.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close drops every entry, returning their reservations.
func (c *LRU) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
	return nil
}

func (c *LRU) evict() {
	for c.size > c.capacity {
		element := c.evictList.Back()
		if element == nil {
			break
		}
		c.removeElement(element)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	ent := e.Value.(*entry)
	delete(c.items, ent.id)
	c.size -= ent.cost
	c.release(ent.cost)
}

func (c *LRU) tryAcquire(n int64) bool {
	if c.rc == nil {
		return true
	}
	return c.rc.TryAcquireMemory(n)
}

func (c *LRU) release(n int64) {
	if c.rc != nil {
		c.rc.ReleaseMemory(n)
	}
}
