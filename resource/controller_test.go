package resource

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.Stats().MemoryInUse)

	// Budget has 10 left; 20 must be refused.
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.Stats().MemoryInUse)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.Stats().MemoryInUse)

	require.NoError(t, c.AcquireMemory(context.Background(), 20))
	assert.Equal(t, int64(60), c.Stats().MemoryInUse)
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.Equal(t, int64(1000), c.Stats().MemoryInUse)

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.Stats().MemoryInUse)
}

func TestController_ImportSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentImports: 2})

	require.NoError(t, c.AcquireImport(context.Background()))
	require.NoError(t, c.AcquireImport(context.Background()))
	assert.Equal(t, int64(2), c.Stats().ActiveImports)

	assert.False(t, c.TryAcquireImport())

	c.ReleaseImport()
	assert.Equal(t, int64(1), c.Stats().ActiveImports)
	assert.True(t, c.TryAcquireImport())
}

func TestController_NilIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<30))
	assert.True(t, c.TryAcquireMemory(1<<30))
	c.ReleaseMemory(1 << 30)

	require.NoError(t, c.AcquireImport(context.Background()))
	c.ReleaseImport()

	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
	assert.Equal(t, Stats{}, c.Stats())
}

func TestThrottledReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	r := NewThrottledReader(context.Background(), strings.NewReader("BEGIN:VCARD"), c)

	buf := make([]byte, 5)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN", string(buf[:n]))

	t.Run("canceled context stops reads", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewThrottledReader(ctx, strings.NewReader("data"), c)
		_, err := r.Read(buf)
		assert.Error(t, err)
	})
}

func TestThrottledWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var sb strings.Builder
	w := NewThrottledWriter(context.Background(), &sb, c)

	n, err := w.Write([]byte("END:VCARD"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "END:VCARD", sb.String())
}
