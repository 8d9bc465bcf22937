package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when the byte budget would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for accounted object bytes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxFinalizers is the maximum number of concurrently running finalizers.
	// If 0, defaults to 1.
	MaxFinalizers int64

	// FinalizeRate is the maximum number of finalizations per second.
	// If 0, unlimited.
	FinalizeRate float64

	// FinalizeBurst is the token bucket burst. Defaults to 1 when FinalizeRate is set.
	FinalizeBurst int
}

// Controller manages budgets shared by one or more collectors.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Finalizers
	finSem    *semaphore.Weighted
	finActive atomic.Int64

	// Rate
	limiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxFinalizers <= 0 {
		cfg.MaxFinalizers = 1
	}

	c := &Controller{
		cfg:    cfg,
		finSem: semaphore.NewWeighted(cfg.MaxFinalizers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.FinalizeRate > 0 {
		burst := cfg.FinalizeBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.FinalizeRate), burst)
	}

	return c
}

// AcquireMemory attempts to reserve bytes from the budget.
// Returns ErrMemoryLimitExceeded if the limit would be exceeded.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns bytes to the budget.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently accounted bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured byte budget (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireFinalizer reserves a finalizer worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireFinalizer(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.finSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.finActive.Add(1)
	return nil
}

// TryAcquireFinalizer reserves a finalizer worker slot without blocking.
func (c *Controller) TryAcquireFinalizer() bool {
	if c == nil {
		return true
	}
	if !c.finSem.TryAcquire(1) {
		return false
	}
	c.finActive.Add(1)
	return true
}

// ReleaseFinalizer releases a finalizer worker slot.
func (c *Controller) ReleaseFinalizer() {
	if c == nil {
		return
	}
	c.finActive.Add(-1)
	c.finSem.Release(1)
}

// ActiveFinalizers returns the number of occupied finalizer slots.
func (c *Controller) ActiveFinalizers() int64 {
	if c == nil {
		return 0
	}
	return c.finActive.Load()
}

// MaxFinalizers returns the finalizer slot limit.
func (c *Controller) MaxFinalizers() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxFinalizers
}

// WaitFinalize blocks until the finalize rate allows one more finalization.
func (c *Controller) WaitFinalize(ctx context.Context) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// TryFinalize reports whether a finalization token is available right now.
func (c *Controller) TryFinalize() bool {
	if c == nil || c.limiter == nil {
		return true
	}
	return c.limiter.AllowN(time.Now(), 1)
}
