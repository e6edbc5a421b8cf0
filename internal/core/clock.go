package core

import (
	"sync/atomic"
	"time"
)

// Clock returns a monotonic timestamp: the time elapsed since an arbitrary
// epoch fixed for the life of the process. Only differences are meaningful.
type Clock func() time.Duration

// epoch carries Go's monotonic clock reading, so time.Since(epoch) is immune
// to wall-clock adjustments.
var epoch = time.Now()

// Monotonic is the default Clock.
func Monotonic() time.Duration {
	return time.Since(epoch)
}

// ManualClock is a Clock that only moves when told to.
// It is safe for concurrent use.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock returns a ManualClock starting at start.
func NewManualClock(start time.Duration) *ManualClock {
	c := &ManualClock{}
	c.now.Store(int64(start))
	return c
}

// Now returns the current manual time. Pass c.Now as an Options.Clock.
func (c *ManualClock) Now() time.Duration {
	return time.Duration(c.now.Load())
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	return time.Duration(c.now.Add(int64(d)))
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Duration) {
	c.now.Store(int64(t))
}
