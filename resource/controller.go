// Package resource provides admission control for bulk card
// processing: a memory budget for spooled payloads, a cap on
// concurrent import workers, and an IO throughput limit.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the
// corresponding limit, except MaxConcurrentImports which
// defaults to 1.
type Config struct {
	// MemoryLimitBytes caps memory reserved for in-flight card
	// payloads. If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxConcurrentImports caps the number of bulk imports
	// running at once.
	MaxConcurrentImports int64

	// IOLimitBytesPerSec throttles bulk reads and writes.
	IOLimitBytesPerSec int64
}

// Stats is a point-in-time snapshot of controller state.
type Stats struct {
	MemoryInUse   int64
	ActiveImports int64
}

// Controller enforces the limits in Config. A nil Controller is
// valid and enforces nothing.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	importSem *semaphore.Weighted
	importing atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentImports <= 0 {
		cfg.MaxConcurrentImports = 1
	}

	c := &Controller{
		cfg:       cfg,
		importSem: semaphore.NewWeighted(cfg.MaxConcurrentImports),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MemoryLimit returns the configured memory budget, 0 when
// unlimited. Callers reserving more than the whole budget must clamp
// to it or the acquisition can never succeed.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireMemory reserves bytes against the memory budget, blocking
// until the reservation fits or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking. It reports
// whether the reservation succeeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns a reservation to the budget.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// AcquireImport claims an import worker slot, blocking until one
// frees up or ctx is canceled.
func (c *Controller) AcquireImport(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.importSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.importing.Add(1)
	return nil
}

// TryAcquireImport claims an import slot without blocking.
func (c *Controller) TryAcquireImport() bool {
	if c == nil {
		return true
	}
	if !c.importSem.TryAcquire(1) {
		return false
	}
	c.importing.Add(1)
	return true
}

// ReleaseImport returns an import slot.
func (c *Controller) ReleaseImport() {
	if c == nil {
		return
	}
	c.importing.Add(-1)
	c.importSem.Release(1)
}

// AcquireIO waits until the throughput limit admits bytes more.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}

// Stats returns current usage.
func (c *Controller) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		MemoryInUse:   c.memUsed.Load(),
		ActiveImports: c.importing.Load(),
	}
}
