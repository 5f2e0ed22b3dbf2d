package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/roach88/fnjit/internal/store"
)

// Sequencer hands out log sequence numbers. Every logged compilation and
// invocation takes one, and the log is ordered by it rather than by wall
// time.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the production Sequencer. It is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

var _ Sequencer = (*Clock)(nil)

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock { return &Clock{} }

// NewClockAt returns a clock whose first Next is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// ResumeClock returns a clock positioned after the highest seq in s, so a
// new process appends to an existing log without reusing sequence numbers.
func ResumeClock(ctx context.Context, s *store.Store) (*Clock, error) {
	seq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(seq), nil
}

func (c *Clock) Next() int64    { return c.seq.Add(1) }
func (c *Clock) Current() int64 { return c.seq.Load() }
