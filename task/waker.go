package task

import "github.com/ehrlich-b/osiris-go/future"

// idWaker wakes a task by re-queuing its id on the owning Executor. This
// replaces the source runtime's RawWaker vtable (clone/wake/wake_by_ref/
// drop) built around an Arc<TaskRepr>: a Go idWaker is a plain value type,
// safe to copy and hand to any number of reactor ops, and the Executor
// itself tolerates being woken for an id that has already completed (Wake
// is then a no-op — see Executor.wake).
type idWaker struct {
	exec *Executor
	id   uint64
}

var _ future.Waker = idWaker{}

func (w idWaker) Wake() {
	w.exec.wake(w.id)
}
