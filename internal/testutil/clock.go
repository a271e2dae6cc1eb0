package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the wall-clock instant a FixedClock starts at when none
// is given.
var DefaultEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a wall clock for tests that only moves when told to.
//
// Defaulted timestamps written during a test then come out identical on
// every run, which golden snapshots rely on.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

// NewFixedClock creates a clock stopped at start. A zero start means
// DefaultEpoch.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	start = start.UTC()
	return &FixedClock{start: start, now: start}
}

// Now returns the current instant. Its signature matches time.Now so the
// method value can be passed wherever a clock function is accepted.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored;
// the clock never runs backwards.
func (c *FixedClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to its start instant.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
