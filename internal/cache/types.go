package cache

import (
	"github.com/hupe1980/vcardio"
)

// CardCache is a capacity-bounded cache of parsed cards. Cards are
// immutable after parsing, so implementations hand out shared
// pointers; callers must not modify returned cards.
type CardCache interface {
	// Get returns a cached card. ok is false on a miss.
	Get(id string) (card *vcardio.Card, ok bool)

	// Set caches a card at the given byte cost. Implementations may
	// decline, e.g. when the cost alone exceeds capacity.
	Set(id string, card *vcardio.Card, cost int64)

	// Remove drops one entry.
	Remove(id string)

	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(id string) bool)

	// Close releases held resources.
	Close() error

	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}
