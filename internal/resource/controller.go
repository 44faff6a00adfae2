package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned once charged memory passes the limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Limits bounds one index. Zero values mean unlimited, except Workers which
// defaults to 1.
type Limits struct {
	// MemoryBytes is the soft limit for bucket entry memory.
	MemoryBytes int64
	// Workers is the number of concurrent training workers.
	Workers int
	// IOBytesPerSec throttles reads of training files.
	IOBytesPerSec int64
}

// Controller accounts memory, hands out worker slots and throttles IO.
type Controller struct {
	limits  Limits
	memUsed atomic.Int64
	workers *semaphore.Weighted
	io      *rate.Limiter
}

// NewController creates a controller for limits.
func NewController(limits Limits) *Controller {
	if limits.Workers <= 0 {
		limits.Workers = 1
	}

	c := &Controller{
		limits:  limits,
		workers: semaphore.NewWeighted(int64(limits.Workers)),
	}
	if limits.IOBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(limits.IOBytesPerSec), int(limits.IOBytesPerSec))
	}
	return c
}

// ChargeMemory records bytes that are already in use. The charge always
// sticks; ErrMemoryLimitExceeded tells the caller to stop growing.
func (c *Controller) ChargeMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	used := c.memUsed.Add(bytes)
	if c.limits.MemoryBytes > 0 && used > c.limits.MemoryBytes {
		return ErrMemoryLimitExceeded
	}
	return nil
}

// ReleaseMemory returns previously charged bytes.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the charged bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the soft limit, 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.limits.MemoryBytes
}

// Workers returns the number of worker slots.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return c.limits.Workers
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker frees a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitIO blocks until n more bytes may be read. Requests larger than one
// second of budget are split.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
