// Package task implements the single-threaded task state machine and
// run-queue executor at the core of osiris-go: spawn, poll-to-completion,
// join, abort, and panic propagation. It has no knowledge of the reactor —
// tasks wake each other (or get woken by reactor ops) purely through the
// future.Waker each Task hands out via idWaker.
package task

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/osiris-go/future"
)

// State is a task's position in its lifecycle. The legal transitions are
// Pending -> Ready, Pending -> Panicked, Pending -> Aborted, and
// Ready -> Taken or Panicked -> Taken (the result or panic payload has been
// collected by Join and may not be collected again).
type State int

const (
	StatePending State = iota
	StateReady
	StatePanicked
	StateAborted
	StateTaken
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StatePanicked:
		return "panicked"
	case StateAborted:
		return "aborted"
	case StateTaken:
		return "taken"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// rawTask is the non-generic face of Task[T] the Executor stores in its
// task table and run queue. Go generics can't put Task[string] and
// Task[int] in the same map, so the executor only ever sees this interface
// — exactly the role TaskRepr's type-erased vtable plays in the source
// runtime.
type rawTask interface {
	id() uint64
	// poll drives the task's future once. It returns true if the task
	// reached a terminal state (Ready, Panicked, or Aborted) this call.
	poll() (done bool)
	state() State
	// abort marks the task Aborted without polling it again. If the task
	// is already terminal this is a no-op, matching abort-after-completion
	// being harmless rather than an error.
	abort()
	setQueued(bool)
	queued() bool
	// isDetached reports whether the owning JoinHandle gave up interest in
	// the result via Detach. The executor uses this to sweep the task's
	// table entry itself once it goes terminal, since nothing will ever
	// call Join/take on it to trigger that cleanup.
	isDetached() bool
}

// Task is the generic, type-safe task record returned to spawners as part
// of a JoinHandle[T]. The zero value is not usable; construct with newTask.
type Task[T any] struct {
	mu       sync.Mutex
	taskID   uint64
	exec     *Executor
	fut      future.Future[T]
	st       State
	result   T
	panicVal any
	joinWake future.Waker
	inQueue  bool
	detached bool
}

func newTask[T any](exec *Executor, taskID uint64, fut future.Future[T]) *Task[T] {
	return &Task[T]{exec: exec, taskID: taskID, fut: fut, st: StatePending}
}

func (t *Task[T]) id() uint64 { return t.taskID }

func (t *Task[T]) queued() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inQueue
}

func (t *Task[T]) setQueued(q bool) {
	t.mu.Lock()
	t.inQueue = q
	t.mu.Unlock()
}

func (t *Task[T]) state() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

// poll drives the task's future exactly once, catching a panic from the
// future body and recording it as State Panicked rather than letting it
// unwind through the executor — a task panic must surface at Join time (or
// not at all, if detached), never crash the thread running RunTick.
func (t *Task[T]) poll() (done bool) {
	t.mu.Lock()
	if t.st != StatePending {
		t.mu.Unlock()
		return true
	}
	fut := t.fut
	t.mu.Unlock()

	cx := &future.Context{Waker: idWaker{exec: t.exec, id: t.taskID}}

	var (
		value    T
		ready    bool
		panicked bool
		pv       any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				pv = r
			}
		}()
		value, ready = fut.Poll(cx)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case panicked:
		t.st = StatePanicked
		t.panicVal = pv
		t.fut = nil
		t.wakeJoinerLocked()
		return true
	case ready:
		t.st = StateReady
		t.result = value
		t.fut = nil
		t.wakeJoinerLocked()
		return true
	default:
		return false
	}
}

func (t *Task[T]) wakeJoinerLocked() {
	if t.joinWake != nil {
		w := t.joinWake
		t.joinWake = nil
		// Wake outside the lock is unnecessary here since idWaker.Wake
		// only re-queues an id on the executor's own run-queue lock, but
		// we still copy the waker out before clearing it so a re-entrant
		// Join call during Wake can't observe a half-cleared slot.
		w.Wake()
	}
}

// setDetached records that this task's JoinHandle no longer intends to
// Join it, so the executor can reclaim its table entry itself once it goes
// terminal instead of waiting on a take() that will never come.
func (t *Task[T]) setDetached() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

func (t *Task[T]) isDetached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detached
}

func (t *Task[T]) abort() {
	t.mu.Lock()
	if t.st != StatePending {
		t.mu.Unlock()
		return
	}
	t.st = StateAborted
	t.fut = nil
	t.wakeJoinerLocked()
	t.mu.Unlock()
}

// setJoinWaker installs the single join-waker slot, overwriting whatever
// waker (if any) was parked there by a previous poll of the same
// JoinHandle. Only one join is ever in flight per task — this runtime, like
// its source, does not support multiple concurrent joiners on one handle.
func (t *Task[T]) setJoinWaker(w future.Waker) {
	t.mu.Lock()
	t.joinWake = w
	t.mu.Unlock()
}

// take returns (result, panicVal, state) and, if the state was Ready or
// Panicked, transitions to Taken so a second Join cannot observe the same
// payload twice.
func (t *Task[T]) take() (T, any, State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.st
	res := t.result
	pv := t.panicVal
	if st == StateReady || st == StatePanicked {
		t.st = StateTaken
	}
	return res, pv, st
}
