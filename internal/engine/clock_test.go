package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartPositions(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())

	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
	assert.Equal(t, int64(42), c.Current())
}

func TestClock_ConcurrentNextIsDense(t *testing.T) {
	c := NewClock()
	const workers, per = 16, 250

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, workers*per)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*per)
	for seq := int64(1); seq <= workers*per; seq++ {
		assert.True(t, seen[seq], "seq %d missing", seq)
	}
}

func TestClock_StampsInvocationsInOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newRegistry(t, lerpDef()), WithClock(NewClockAt(100)))

	var last int64 = 100
	for i := 0; i < 3; i++ {
		res, err := e.Invoke(ctx, "lerp", lerpInputs(0, 10, i))
		require.NoError(t, err)
		assert.Equal(t, last+1, res.Seq)
		last = res.Seq
	}
	assert.Equal(t, last, e.Clock().Current())
}

func TestResumeClock_EmptyStore(t *testing.T) {
	clock, err := ResumeClock(context.Background(), setupTestStore(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1), clock.Next())
}
