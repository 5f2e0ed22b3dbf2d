package engine

import (
	"context"
	"sync"
)

// Request asks the Run loop to invoke a function.
type Request struct {
	Function string
	Inputs   map[string]any

	done chan Outcome
}

// Outcome is delivered once per submitted request.
type Outcome struct {
	Result Result
	Err    error
}

// requestQueue is a thread-safe FIFO queue of requests.
//
// The queue uses a channel for signaling so the Run loop can wait on it
// together with its context.
type requestQueue struct {
	mu       sync.Mutex
	requests []Request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]Request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return Request{}, false
	}
	r := q.requests[0]

	// Clear the slot so the backing array does not retain inputs.
	q.requests[0] = Request{}
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// Wait returns a channel that signals when requests may be available. It
// is closed by Close.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops accepting requests and wakes any waiter.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Submit queues a call for the Run loop. The returned channel receives
// exactly one Outcome. ok is false when the engine is stopped.
func (e *Engine) Submit(name string, inputs map[string]any) (<-chan Outcome, bool) {
	done := make(chan Outcome, 1)
	if !e.queue.Enqueue(Request{Function: name, Inputs: inputs, done: done}) {
		return nil, false
	}
	return done, true
}

// QueueLen returns the number of requests waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run invokes submitted requests in FIFO order until ctx is cancelled or
// Stop is called and the queue has drained. Requests still queued when ctx
// is cancelled receive ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.log.Debug("request loop starting")

	for {
		if r, ok := e.queue.TryDequeue(); ok {
			res, err := e.Invoke(ctx, r.Function, r.Inputs)
			r.done <- Outcome{Result: res, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Debug("request loop stopping: context cancelled")
			e.queue.Close()
			for {
				r, ok := e.queue.TryDequeue()
				if !ok {
					break
				}
				r.done <- Outcome{Err: ctx.Err()}
			}
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed by Close, so this fires
			// immediately once the queue is stopped.
			if e.queue.Len() == 0 && e.queue.isClosed() {
				e.log.Debug("request loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the remaining requests are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (q *requestQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
