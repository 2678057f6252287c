// Package future defines the minimal pollable-future vocabulary shared by
// the task executor and the reactor, mirroring std::future::Future and
// std::task::{Context, Waker} from the runtime this package is modeled on.
//
// Go has no language-level async/await, so a Future here is simply a type
// that knows how to make progress when polled and report whether it is
// done. Combinators (ops in package reactor, timers in package rtime,
// everything under task) are built by hand out of this interface instead of
// compiler-generated state machines.
package future

// Waker lets a pending Future schedule itself to be polled again. Unlike
// the Rust RawWaker vtable this replaces, Go needs no separate
// clone/wake/wake_by_ref/drop quartet: ordinary interface values and the
// garbage collector already give us that for free.
type Waker interface {
	Wake()
}

// Context is handed to Poll on every call. It currently carries only the
// Waker; additional fields would go here if the runtime grew per-poll
// metadata.
type Context struct {
	Waker Waker
}

// Future is implemented by anything the executor or a combinator can drive
// to completion. Poll returns (value, true) once ready; until then it must
// return the zero value and false, having arranged (via cx.Waker) to be
// polled again when progress is possible.
type Future[T any] interface {
	Poll(cx *Context) (T, bool)
}

// Detachable is implemented by futures that own a resource the runtime must
// keep alive after the caller stops polling them (the reactor's submit
// future, chiefly). Combinators that abandon a losing branch — timeout is
// the only one in this module — call Detach instead of simply discarding
// the value, so the in-flight kernel operation's buffers are not collected
// out from under it.
type Detachable interface {
	Detach()
}

// Func adapts a plain poll function into a Future, the way poll_fn does in
// the source runtime. One-shot combinators such as osiris.Yield and
// rtime.Timeout are built with this instead of a named struct.
type Func[T any] func(cx *Context) (T, bool)

func (f Func[T]) Poll(cx *Context) (T, bool) { return f(cx) }
