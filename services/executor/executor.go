// Package executor provides a fixed-concurrency task runner with a capped
// pending queue that rejects rather than blocks when full. Under fast
// scrolling, work for superseded items is worthless; shedding it at submit
// time caps memory and outstanding-request growth.
package executor

import (
	"log"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// TaskHandle represents one submitted unit of work.
type TaskHandle struct {
	ID        string
	SessionID uint64
	ItemID    string

	// Done is closed when the task has finished, successfully or not.
	Done chan struct{}
}

type task struct {
	handle *TaskHandle
	fn     func()
}

// Executor runs submitted functions on a fixed pool of workers.
type Executor struct {
	name    string
	tasks   chan task
	mu      sync.Mutex
	closed  bool
	workers sync.WaitGroup
}

// New creates an executor with the given worker count and queue capacity.
// Both are clamped to at least one.
func New(name string, workers, queueCapacity int) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}

	e := &Executor{
		name:  name,
		tasks: make(chan task, queueCapacity),
	}
	for i := 0; i < workers; i++ {
		e.workers.Add(1)
		go e.worker()
	}
	return e
}

// Submit attempts to queue fn without blocking. The second return is false
// when the queue is saturated; callers must skip the unit of work rather
// than retry inline. Rejection is load shedding, not an error.
func (e *Executor) Submit(sessionID uint64, itemID string, fn func()) (*TaskHandle, bool) {
	handle := &TaskHandle{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ItemID:    itemID,
		Done:      make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, false
	}
	select {
	case e.tasks <- task{handle: handle, fn: fn}:
		e.mu.Unlock()
		return handle, true
	default:
		e.mu.Unlock()
		return nil, false
	}
}

func (e *Executor) worker() {
	defer e.workers.Done()
	for t := range e.tasks {
		e.run(t)
	}
}

// run executes one task. Panics are caught at the task boundary so a faulty
// lookup can never take down the poller loop.
func (e *Executor) run(t task) {
	defer close(t.handle.Done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[executor:%s] task %s panicked: %v\n%s", e.name, t.handle.ID, r, debug.Stack())
		}
	}()
	t.fn()
}

// Shutdown stops accepting work and waits for in-flight tasks to finish.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	e.workers.Wait()
}
