// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor is the dispatcher's backlog queue: an eapache/queue-backed
// FIFO that the single-threaded driver loop submits received messages
// to, and that DRAINING waits to empty before the dispatcher reaches
// STOPPED.

package concurrency

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrExecutorClosed is returned by Submit once the executor has begun
// shutting down.
var ErrExecutorClosed = errors.New("concurrency: executor closed")

type TaskFunc func()

// Executor runs submitted tasks in FIFO order across numWorkers workers.
// The dispatcher uses a single worker to preserve the in-order,
// single-threaded dispatch spec §4.4 requires; numWorkers > 1 is an
// extension point for a future multi-caller dispatcher.
type Executor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	q       *queue.Queue
	pending int
	closed  bool
	workers int
	wg      sync.WaitGroup
}

// NewExecutor constructs an Executor with numWorkers background goroutines
// draining the queue. numWorkers <= 0 is treated as 1.
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	e := &Executor{q: queue.New(), workers: numWorkers}
	e.cond = sync.NewCond(&e.mu)
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run()
	}
	return e
}

// NumWorkers reports the configured worker count.
func (e *Executor) NumWorkers() int { return e.workers }

func (e *Executor) run() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.q.Length() == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.q.Length() == 0 && e.closed {
			e.mu.Unlock()
			return
		}
		task := e.q.Remove().(TaskFunc)
		e.mu.Unlock()

		task()

		e.mu.Lock()
		e.pending--
		if e.pending == 0 {
			e.cond.Broadcast()
		}
		e.mu.Unlock()
	}
}

// Submit enqueues task for execution. Returns ErrExecutorClosed once Close
// has been called.
func (e *Executor) Submit(task TaskFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExecutorClosed
	}
	e.q.Add(task)
	e.pending++
	e.cond.Signal()
	return nil
}

// Drain blocks until every submitted task has run. It does not prevent new
// submissions; callers typically stop submitting before calling Drain.
func (e *Executor) Drain() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.pending > 0 {
		e.cond.Wait()
	}
}

// Close stops accepting new tasks and blocks until all workers exit. Workers
// exit only once the queue is empty, so tasks already queued still run
// before Close returns.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cond.Broadcast()
	e.wg.Wait()
}
