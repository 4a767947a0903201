package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic time source for tests. Each Now call returns
// the current reading and advances it by a fixed step, so successive
// stamps are distinct, ordered and identical across runs.
//
// Wire it into a journal with journal.WithClock(clock.Now) to pin the
// started_at/finished_at stamps of a run.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int
}

// NewClock creates a clock whose first Now returns start, advancing by
// step per call. A zero step freezes the clock at start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, step: step}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Current returns the reading the next Now call will produce, without
// advancing the clock.
func (c *Clock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.calls) * c.step)
}

// Reset rewinds the clock to its start reading.
//
// Used for test reuse. After Reset(), Now() returns start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
