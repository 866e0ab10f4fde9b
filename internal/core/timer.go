package core

import "time"

// BatchClock paces simulation batches at a fixed interval so a viewer can show
// intermediate states. It never interrupts a batch; it only decides when the
// next one may start.
type BatchClock struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewBatchClock constructs a clock that allows one batch per interval. A
// non-positive interval allows a batch on every call.
func NewBatchClock(interval time.Duration) *BatchClock {
	return &BatchClock{interval: interval, now: time.Now}
}

// SetInterval changes the pacing. It is safe to call from the main loop.
func (c *BatchClock) SetInterval(interval time.Duration) {
	c.interval = interval
}

// Interval reports the current pacing.
func (c *BatchClock) Interval() time.Duration { return c.interval }

// Ready reports whether the next batch may run and, if so, restarts the interval.
func (c *BatchClock) Ready() bool {
	now := c.now()
	if c.last.IsZero() || c.interval <= 0 || now.Sub(c.last) >= c.interval {
		c.last = now
		return true
	}
	return false
}
