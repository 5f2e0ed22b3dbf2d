package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestQueue_FIFO(t *testing.T) {
	q := newRequestQueue()

	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(Request{Function: name}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		r, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, r.Function)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestRequestQueue_Close(t *testing.T) {
	q := newRequestQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(Request{Function: "A"}), "enqueue after close should fail")

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait() should fire once closed")
	}
}

func TestRun_ProcessesSubmittedRequests(t *testing.T) {
	e := newEngine(t, newRegistry(t, lerpDef()))

	var outcomes []<-chan Outcome
	for _, x := range []float64{0, 0.5, 1} {
		ch, ok := e.Submit("lerp", lerpInputs(0, 10, x))
		require.True(t, ok)
		outcomes = append(outcomes, ch)
	}
	assert.Equal(t, 3, e.QueueLen())

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	for i, want := range []float32{0, 5, 10} {
		select {
		case out := <-outcomes[i]:
			require.NoError(t, out.Err)
			assert.Equal(t, want, out.Result.Outputs["result"])
		case <-time.After(5 * time.Second):
			t.Fatalf("request %d not processed", i)
		}
	}

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	_, ok := e.Submit("lerp", lerpInputs(0, 1, 0))
	assert.False(t, ok, "submit after Stop should fail")
}

func TestRun_OrderFollowsSubmission(t *testing.T) {
	e := newEngine(t, newRegistry(t, lerpDef()))

	a, _ := e.Submit("lerp", lerpInputs(0, 1, 0))
	b, _ := e.Submit("lerp", lerpInputs(0, 1, 1))
	e.Stop()

	// Stop still drains what was queued.
	require.NoError(t, e.Run(context.Background()))
	first, second := <-a, <-b
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Less(t, first.Result.Seq, second.Result.Seq)
}

func TestRun_ErrorsAreDelivered(t *testing.T) {
	e := newEngine(t, newRegistry(t))

	ch, ok := e.Submit("nope", nil)
	require.True(t, ok)
	e.Stop()
	require.NoError(t, e.Run(context.Background()))

	out := <-ch
	assert.True(t, IsUnknownFunction(out.Err))
}

func TestRun_CancelledContext(t *testing.T) {
	e := newEngine(t, newRegistry(t, lerpDef()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, ok := e.Submit("lerp", lerpInputs(0, 1, 0))
	require.True(t, ok)

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	out := <-ch
	assert.ErrorIs(t, out.Err, context.Canceled)
}
