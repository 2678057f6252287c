package task

import (
	"sync"

	"github.com/ehrlich-b/osiris-go/future"
)

// Observer receives task lifecycle events. It is a narrow, package-local
// mirror of osiris.Observer's task-related methods: the root package
// implements it by forwarding to its own Observer, and Executor never
// imports the root package, avoiding an import cycle.
type Observer interface {
	ObserveSpawn()
	ObserveTaskDone(panicked, aborted bool)
	ObserveRunQueueDepth(depth uint32)
}

type noopObserver struct{}

func (noopObserver) ObserveSpawn()                  {}
func (noopObserver) ObserveTaskDone(bool, bool)      {}
func (noopObserver) ObserveRunQueueDepth(uint32)     {}

// Executor owns the run queue and task table for a single OS thread. It is
// not safe for concurrent use from more than one goroutine: this runtime is
// thread-per-core, so exactly one goroutine (the one running BlockOn on its
// pinned OS thread) ever touches an Executor.
type Executor struct {
	mu            sync.Mutex
	tasks         map[uint64]rawTask
	runQueue      []uint64
	nextID        uint64
	eventInterval int
	observer      Observer
	currentID     uint64
}

// NewExecutor creates an Executor. eventInterval bounds how many ready
// tasks RunTick polls per call before returning control to the caller (the
// reactor needs a turn to submit/drain completions); 61 matches this
// runtime's (and tokio's) default.
func NewExecutor(eventInterval int) *Executor {
	if eventInterval <= 0 {
		eventInterval = 61
	}
	return &Executor{
		tasks:         make(map[uint64]rawTask),
		eventInterval: eventInterval,
		observer:      noopObserver{},
	}
}

// SetObserver installs a metrics observer; nil restores the no-op default.
func (e *Executor) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o == nil {
		o = noopObserver{}
	}
	e.observer = o
}

// Spawn registers fut as a new task and queues it for its first poll,
// returning the generic Task handle a JoinHandle[T] wraps.
func Spawn[T any](e *Executor, fut future.Future[T]) *Task[T] {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	t := newTask(e, id, fut)
	e.tasks[id] = t
	t.setQueued(true)
	e.runQueue = append(e.runQueue, id)
	obs := e.observer
	e.mu.Unlock()

	obs.ObserveSpawn()
	return t
}

// wake re-queues id for another poll unless it is already queued (a task
// may be woken many times between polls; the run queue holds at most one
// entry per task, same as the source runtime's unique_queue) or the task no
// longer exists (it completed and was swept before a stale waker fired —
// harmless, ignored).
func (e *Executor) wake(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[id]
	if !ok {
		return
	}
	if t.queued() {
		return
	}
	t.setQueued(true)
	e.runQueue = append(e.runQueue, id)
}

// Wake re-queues the task with the given id if it exists and is not
// already queued, the same path idWaker uses. Reactor completions do not
// call it: they wake the future.Waker parked on the op.
func (e *Executor) Wake(id uint64) { e.wake(id) }

// AnyWoken reports whether the run queue is non-empty, i.e. whether RunTick
// has immediate work without waiting on the reactor.
func (e *Executor) AnyWoken() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runQueue) > 0
}

// RunTick polls up to eventInterval ready tasks once each, removing
// terminal tasks from the run queue. A finished detached task is deleted
// from the task table here; any other terminal task stays in the table
// until its JoinHandle collects the result, which calls Remove itself. It
// returns the number of tasks polled.
func (e *Executor) RunTick() int {
	e.mu.Lock()
	budget := e.eventInterval
	obs := e.observer
	e.mu.Unlock()

	polled := 0
	for polled < budget {
		e.mu.Lock()
		if len(e.runQueue) == 0 {
			e.mu.Unlock()
			break
		}
		id := e.runQueue[0]
		e.runQueue = e.runQueue[1:]
		t, ok := e.tasks[id]
		if !ok {
			e.mu.Unlock()
			continue
		}
		t.setQueued(false)
		e.currentID = id
		e.mu.Unlock()

		done := t.poll()
		polled++

		e.mu.Lock()
		e.currentID = 0
		if done && t.isDetached() {
			delete(e.tasks, id)
		}
		e.mu.Unlock()

		if done {
			obs.ObserveTaskDone(t.state() == StatePanicked, t.state() == StateAborted)
		}
	}

	e.mu.Lock()
	depth := len(e.runQueue)
	e.mu.Unlock()
	obs.ObserveRunQueueDepth(uint32(depth))

	return polled
}

// Abort transitions the task with the given id to Aborted if it is still
// Pending. Unknown or already-terminal ids are a no-op: abort of a task
// that already finished (or never existed, e.g. a stale id) is not an
// error, matching JoinHandle.Abort's documented idempotence.
func (e *Executor) Abort(id uint64) {
	e.mu.Lock()
	t, ok := e.tasks[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	t.abort()
	e.wake(id)
}

// Remove deletes a terminal task from the task table. Called once its
// JoinHandle has collected the result (or been dropped/detached), the Go
// stand-in for the source runtime's Drop-triggered table cleanup.
func (e *Executor) Remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tasks, id)
}

// TaskCount returns the number of tasks still tracked (pending, ready-
// unclaimed, or terminal-unclaimed). Used by tests asserting the
// task-accounting invariant.
func (e *Executor) TaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// CurrentID returns the id of the task currently being polled by RunTick,
// or 0 if called from outside a poll (e.g. from the BlockOn driving loop
// itself). This is the Go stand-in for the source runtime's thread-local
// "current task" — one Executor runs on one OS thread, so a single field
// suffices instead of a real thread-local.
func (e *Executor) CurrentID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentID
}
