package task

import (
	"fmt"

	"github.com/ehrlich-b/osiris-go/future"
)

// Panic is the payload a JoinHandle re-raises (via panic, not an error
// return) when the joined task's future panicked and the handle was never
// detached. It implements error only so it prints sensibly if a caller
// logs it with CatchUnwind instead of letting it unwind further.
type Panic struct {
	Value any
}

func (p *Panic) Error() string {
	return fmt.Sprintf("osiris: task panicked: %v", p.Value)
}

// AbortedError is returned — not panicked — by Join when the task was
// aborted before it completed. Abort is caller-initiated cancellation, not
// an exceptional condition, so it surfaces as an ordinary error value.
type AbortedError struct {
	TaskID uint64
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("osiris: task %d aborted", e.TaskID)
}

// JoinHandle lets a spawner wait for a task's result, abort it, or detach
// it so it runs to completion unobserved. It is itself a future.Future, so
// it can be polled from another task the same as any other pollable.
type JoinHandle[T any] struct {
	t        *Task[T]
	exec     *Executor
	joined   bool
	detached bool
}

// NewJoinHandle wraps t. Constructor used by Spawn's caller in package
// osiris; exec must be the Executor that owns t.
func NewJoinHandle[T any](exec *Executor, t *Task[T]) *JoinHandle[T] {
	return &JoinHandle[T]{t: t, exec: exec}
}

// ID returns the task's id, stable for the task's lifetime and usable with
// Executor.Abort directly if the handle itself has been discarded.
func (h *JoinHandle[T]) ID() uint64 { return h.t.id() }

// Poll implements future.Future[T]. It panics with *Panic if the task
// panicked. An aborted (or already collected) task resolves with the zero
// value of T, since Future[T] has no error channel of its own; Join is the
// call that reports an abort as an error.
func (h *JoinHandle[T]) Poll(cx *future.Context) (T, bool) {
	var zero T
	switch h.t.state() {
	case StateReady, StatePanicked:
		val, pv, st := h.t.take()
		h.exec.Remove(h.t.id())
		if st == StatePanicked {
			panic(&Panic{Value: pv})
		}
		return val, true
	case StateAborted, StateTaken:
		h.exec.Remove(h.t.id())
		return zero, true
	default:
		h.t.setJoinWaker(cx.Waker)
		return zero, false
	}
}

// Join checks the task once and does not block: it returns done=false and
// parks cx.Waker if the task is still pending, so the caller polls it again
// when woken (osiris.BlockOn's loop does this for the root task; a task
// joining another task calls it from its own Poll on the same executor).
//
// Join returns (zero, *AbortedError) if the task was aborted or its result
// was already collected, and re-panics
// with *Panic if the task's future panicked and the handle was not
// detached beforehand.
//
// Once the terminal payload has been observed this way, the task's
// executor-table entry is reclaimed immediately (Executor.Remove) —
// mirroring what Detach already does for the detached case — so a
// spawned-and-joined task never outlives its JoinHandle in the table.
func (h *JoinHandle[T]) Join(cx *future.Context) (T, bool, error) {
	var zero T
	switch h.t.state() {
	case StateReady, StatePanicked:
		val, pv, st := h.t.take()
		h.joined = true
		h.exec.Remove(h.t.id())
		if st == StatePanicked {
			panic(&Panic{Value: pv})
		}
		return val, true, nil
	case StateAborted:
		h.joined = true
		h.exec.Remove(h.t.id())
		return zero, true, &AbortedError{TaskID: h.t.id()}
	case StateTaken:
		h.exec.Remove(h.t.id())
		return zero, true, &AbortedError{TaskID: h.t.id()}
	default:
		h.t.setJoinWaker(cx.Waker)
		return zero, false, nil
	}
}

// Abort requests cancellation. If the task has already completed this is a
// harmless no-op, matching the source runtime's documented abort
// semantics: abort is a request, not a guarantee of interruption before
// the next poll boundary.
func (h *JoinHandle[T]) Abort() {
	h.exec.Abort(h.t.id())
}

// Detach releases this handle's interest in the task's result without
// aborting it: the task keeps running exactly as before, any panic it
// raises is swallowed instead of re-raised (Join/Poll are simply never
// called again to re-panic it), and the executor reclaims its table entry
// itself the moment it goes terminal. This is the Go stand-in for simply
// dropping a JoinHandle in the source runtime.
func (h *JoinHandle[T]) Detach() {
	h.detached = true
	h.t.setDetached()
	if h.t.state() != StatePending {
		h.exec.Remove(h.t.id())
	}
}

// CatchUnwind joins the task and converts a task panic into a returned
// error instead of propagating it, the one place in this package a *Panic
// is turned into an ordinary error value for a caller that wants to
// recover from a child task's panic without crashing its own.
func (h *JoinHandle[T]) CatchUnwind(cx *future.Context) (result T, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if p, ok := r.(*Panic); ok {
				done = true
				err = p
				return
			}
			panic(r)
		}
	}()
	return h.Join(cx)
}
