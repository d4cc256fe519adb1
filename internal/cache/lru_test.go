package cache

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/resource"
)

func card(name string) *vcardio.Card {
	return &vcardio.Card{FormattedName: name}
}

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(1024, nil)

	_, ok := c.Get("alice")
	assert.False(t, ok)

	c.Set("alice", card("Alice"), 100)

	got, ok := c.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.FormattedName)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(300, nil)

	c.Set("a", card("A"), 100)
	c.Set("b", card("B"), 100)
	c.Set("c", card("C"), 100)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", card("D"), 100)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	_, ok = c.Get("d")
	assert.True(t, ok)

	assert.Equal(t, int64(300), c.Size())
	assert.Equal(t, 3, c.Len())
}

func TestLRU_OversizedEntryNotCached(t *testing.T) {
	c := NewLRU(100, nil)

	c.Set("big", card("Big"), 200)

	_, ok := c.Get("big")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_UpdateAdjustsCost(t *testing.T) {
	c := NewLRU(1024, nil)

	c.Set("a", card("A"), 100)
	c.Set("a", card("A2"), 300)
	assert.Equal(t, int64(300), c.Size())

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", got.FormattedName)

	c.Set("a", card("A3"), 50)
	assert.Equal(t, int64(50), c.Size())
}

func TestLRU_Remove(t *testing.T) {
	c := NewLRU(1024, nil)

	c.Set("a", card("A"), 100)
	c.Remove("a")
	c.Remove("a") // absent is fine

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU(1024, nil)

	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("team/%d", i), card("T"), 10)
	}
	c.Set("solo", card("S"), 10)

	c.Invalidate(func(id string) bool {
		return strings.HasPrefix(id, "team/")
	})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("solo")
	assert.True(t, ok)
}

func TestLRU_ControllerAccounting(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 250})
	c := NewLRU(1024, rc)

	c.Set("a", card("A"), 100)
	c.Set("b", card("B"), 100)
	assert.Equal(t, int64(200), rc.Stats().MemoryInUse)

	// The controller denies the third reservation; the card is
	// dropped, not blocked on.
	c.Set("c", card("C"), 100)
	_, ok := c.Get("c")
	assert.False(t, ok)

	c.Remove("a")
	assert.Equal(t, int64(100), rc.Stats().MemoryInUse)

	c.Set("c", card("C"), 100)
	_, ok = c.Get("c")
	assert.True(t, ok)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(0), rc.Stats().MemoryInUse)
	assert.Equal(t, 0, c.Len())
}
