package engine

import "sync/atomic"

// Clock is a monotonic logical clock for ordering deliveries.
//
// Every cue and change notification is stamped with a strictly increasing
// seq. Listeners receiving changes from concurrent tick goroutines use it to
// discard stale snapshots.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
