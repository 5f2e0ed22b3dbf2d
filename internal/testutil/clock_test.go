package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, clock.Next())
	}
	assert.Equal(t, int64(3), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_SameAcrossRuns(t *testing.T) {
	a, b := NewDeterministicClock(), NewDeterministicClock()
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, per = 20, 50

	got := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				got[w] = append(got[w], clock.Next())
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, seqs := range got {
		for _, s := range seqs {
			require.False(t, seen[s], "seq %d handed out twice", s)
			seen[s] = true
		}
	}
	assert.Len(t, seen, workers*per)
	assert.Equal(t, int64(workers*per), clock.Current())
}
