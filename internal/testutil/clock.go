package testutil

import "sync/atomic"

// DeterministicClock is the Sequencer used by scenario runs and CLI tests.
// Each engine under test gets its own clock, so a scenario logs the same
// seq values on every execution engine. Reset rewinds it to zero.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

func (c *DeterministicClock) Next() int64    { return c.seq.Add(1) }
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }
func (c *DeterministicClock) Reset()         { c.seq.Store(0) }
