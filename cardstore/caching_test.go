package cardstore

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/resource"
)

// countingStore counts reads hitting the inner store.
type countingStore struct {
	inner Store
	gets  atomic.Int64
}

func (s *countingStore) Put(ctx context.Context, id string, card *vcardio.Card) error {
	return s.inner.Put(ctx, id, card)
}

func (s *countingStore) Get(ctx context.Context, id string) (*vcardio.Card, error) {
	s.gets.Add(1)
	return s.inner.Get(ctx, id)
}

func (s *countingStore) Open(ctx context.Context, id string) (Object, error) {
	return s.inner.Open(ctx, id)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	return s.inner.Delete(ctx, id)
}

func (s *countingStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

func newCachingFixture(t *testing.T) (*CachingStore, *countingStore) {
	t.Helper()

	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	counting := &countingStore{inner: local}
	return NewCachingStore(counting, 1<<20), counting
}

func TestCachingStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store, counting := newCachingFixture(t)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "alice", sampleCard("alice", "Alice Example")))

	card, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.gets.Load())

	again, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.gets.Load(), "second read must come from cache")
	assert.Same(t, card, again)

	hits, misses := store.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	store, counting := newCachingFixture(t)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "alice", sampleCard("alice", "Alice Example")))

	_, err := store.Get(ctx, "alice")
	require.NoError(t, err)

	updated := sampleCard("alice", "Alice Example")
	updated.Note = "changed"
	require.NoError(t, store.Put(ctx, "alice", updated))

	card, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "changed", card.Note)
	assert.Equal(t, int64(2), counting.gets.Load())
}

func TestCachingStore_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	store, _ := newCachingFixture(t)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "alice", sampleCard("alice", "Alice Example")))

	_, err := store.Get(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "alice"))

	_, err = store.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	store, _ := newCachingFixture(t)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "alice", sampleCard("alice", "Alice Example")))
	require.NoError(t, store.Put(ctx, "bob", sampleCard("bob", "Bob Example")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)

	obj, err := store.Open(ctx, "alice")
	require.NoError(t, err)
	defer obj.Close()

	card, err := ReadCard(obj)
	require.NoError(t, err)
	assert.Equal(t, "Alice Example", card.FormattedName)
}

func TestCachingStore_ControllerAccounting(t *testing.T) {
	ctx := context.Background()

	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	store := NewCachingStore(local, 1<<20, WithController(rc))

	require.NoError(t, store.Put(ctx, "alice", sampleCard("alice", "Alice Example")))

	_, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Greater(t, rc.Stats().MemoryInUse, int64(0))

	require.NoError(t, store.Close())
	assert.Equal(t, int64(0), rc.Stats().MemoryInUse)
}
