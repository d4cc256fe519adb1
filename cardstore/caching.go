package cardstore

import (
	"context"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/internal/cache"
	"github.com/hupe1980/vcardio/resource"
)

type cachingOptions struct {
	controller *resource.Controller
}

// CachingOption configures a CachingStore.
type CachingOption func(*cachingOptions)

// WithController accounts cached cards against the controller's
// memory budget, so the cache competes with in-flight imports instead
// of stacking on top of them.
func WithController(rc *resource.Controller) CachingOption {
	return func(o *cachingOptions) {
		o.controller = rc
	}
}

// CachingStore wraps a Store with an LRU cache of parsed cards.
// Writes invalidate rather than populate: the inner store normalizes
// cards to its dialect on Put, so only a read-back reflects what Get
// would return. Open always goes to the inner store.
type CachingStore struct {
	inner Store
	cache *cache.LRU
}

// NewCachingStore wraps inner with a card cache of capacity bytes.
func NewCachingStore(inner Store, capacity int64, optFns ...CachingOption) *CachingStore {
	var opts cachingOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity, opts.controller),
	}
}

// Get returns the cached card or reads through to the inner store.
// Returned cards are shared; callers must not modify them.
func (s *CachingStore) Get(ctx context.Context, id string) (*vcardio.Card, error) {
	if card, ok := s.cache.Get(id); ok {
		return card, nil
	}

	card, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, card, CardSize(card))

	return card, nil
}

// Put writes through and drops the stale cache entry.
func (s *CachingStore) Put(ctx context.Context, id string, card *vcardio.Card) error {
	s.cache.Remove(id)
	return s.inner.Put(ctx, id, card)
}

// Open returns the raw serialized card from the inner store.
func (s *CachingStore) Open(ctx context.Context, id string) (Object, error) {
	return s.inner.Open(ctx, id)
}

// Delete removes the card from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.inner.Delete(ctx, id)
}

// List lists the inner store.
func (s *CachingStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

// CacheStats returns cache hit and miss counts.
func (s *CachingStore) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close drops the cache. The inner store is not closed; the caller
// owns it.
func (s *CachingStore) Close() error {
	return s.cache.Close()
}
