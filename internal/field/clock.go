package field

import "sync/atomic"

// Clock is the monotonic logical clock stamping engine events.
//
// All trace events carry a strictly increasing seq from this clock, so
// a recorded pass replays in an order independent of wall time. The
// engine is single-context by design; atomics keep the clock safe for
// the occasional cross-context reader (e.g. a journal flusher).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from start. Used by replay to
// continue from the last journaled position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
