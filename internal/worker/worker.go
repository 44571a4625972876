// Package worker provides the serialized event loop used by the arbiter and
// the delivery manager.
//
// A Worker owns one goroutine that runs posted functions strictly in
// submission order, one at a time. State touched only from posted functions
// needs no further locking. Post never blocks: the mailbox is unbounded, so
// collaborators (timers, modem callbacks, listeners acking from inside a
// delivery) can post from any goroutine, including the worker's own.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Worker is a single-goroutine FIFO event loop.
type Worker struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	signal  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a worker. Functions posted before Start are queued.
func New() *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		signal: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the event loop. Calling Start more than once is a no-op.
func (w *Worker) Start() {
	if w.running.Swap(true) {
		return
	}
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the event loop and waits for the running function to
// return. Functions still queued are discarded; later posts are rejected.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.closed = true
	w.queue = nil
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.running.Store(false)
}

// Done is closed once Stop has been called.
func (w *Worker) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Post enqueues fn. It reports false if the worker has been stopped.
func (w *Worker) Post(fn func()) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, fn)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return true
}

// Sync blocks until every function posted before the call has run.
// It must not be called from the worker goroutine.
func (w *Worker) Sync() {
	done := make(chan struct{})
	if !w.Post(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-w.ctx.Done():
	}
}

// Call runs fn on the worker and waits for it to return. It reports false if
// the worker was stopped before fn could run. It must not be called from the
// worker goroutine.
func (w *Worker) Call(fn func()) bool {
	done := make(chan struct{})
	if !w.Post(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-w.ctx.Done():
		return false
	}
}

// Pending returns the number of queued functions.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for {
		fn, ok := w.next()
		if !ok {
			return
		}
		fn()
	}
}

func (w *Worker) next() (func(), bool) {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			fn := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return fn, true
		}
		w.mu.Unlock()

		select {
		case <-w.ctx.Done():
			return nil, false
		case <-w.signal:
		}
	}
}
