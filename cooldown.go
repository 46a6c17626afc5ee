package goAuthFlow

import (
	"context"
	"sync"
	"time"
)

// Cooldown gates OTP resends. It counts down a fixed number of ticks from the
// last successful request and is owned by the [Controller], outside [State].
type Cooldown struct {
	mu       sync.Mutex
	ticks    int
	tick     time.Duration
	now      func() time.Time
	deadline time.Time
}

// NewCooldown returns a stopped cooldown of ticks × tick. A nil now uses time.Now.
func NewCooldown(ticks int, tick time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		ticks: ticks,
		tick:  tick,
		now:   now,
	}
}

// Start (re)starts the countdown from the full tick count.
func (c *Cooldown) Start() {
	c.mu.Lock()
	c.deadline = c.now().Add(time.Duration(c.ticks) * c.tick)
	c.mu.Unlock()
}

// Stop clears the countdown so [Cooldown.Active] reports false.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	c.deadline = time.Time{}
	c.mu.Unlock()
}

// Remaining returns the whole ticks left, rounded up. Zero means resend is allowed.
func (c *Cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Cooldown) remainingLocked() int {
	if c.deadline.IsZero() || c.tick <= 0 {
		return 0
	}
	left := c.deadline.Sub(c.now())
	if left <= 0 {
		return 0
	}
	n := int((left + c.tick - 1) / c.tick)
	if n > c.ticks {
		n = c.ticks
	}
	return n
}

// Active reports whether a resend must still be rejected.
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Ticks returns the configured length of the countdown.
func (c *Cooldown) Ticks() int {
	return c.ticks
}

// Watch emits the remaining tick count immediately and then once per tick
// until it reaches zero or ctx is done. The channel is closed afterwards.
func (c *Cooldown) Watch(ctx context.Context) <-chan int {
	out := make(chan int, 1)
	go func() {
		defer close(out)

		if c.tick <= 0 {
			out <- 0
			return
		}

		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()

		for {
			left := c.Remaining()
			select {
			case out <- left:
			case <-ctx.Done():
				return
			}
			if left == 0 {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
