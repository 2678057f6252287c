package rtime

import (
	"time"

	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/reactor"
)

// timeoutResult is Timeout's output: there is no timed-out error value.
// Timeout reports the timeout as the expired flag instead, since it has no
// spare error channel to put one in (f may not be fallible at all).
type timeoutResult[T any] struct {
	value   T
	expired bool
}

// Timeout races f against a d-nanosecond sleep. If f resolves first, its
// value is returned with expired=false and the sleep is detached so its
// reactor-side timer op is abandoned rather than polled to completion. If
// the sleep wins first, f is detached instead — if f is a reactor op (any
// function in package reactor), Detach keeps its resource bundle pinned
// until the real completion eventually arrives and is silently discarded,
// exactly the property a raced-away read or accept depends on.
func Timeout[T any](r *reactor.Reactor, d time.Duration, f future.Future[T]) future.Future[timeoutResult[T]] {
	sleep := Sleep(r, d)
	done := false

	return future.Func[timeoutResult[T]](func(cx *future.Context) (timeoutResult[T], bool) {
		if done {
			var zero timeoutResult[T]
			return zero, false
		}

		if v, ok := f.Poll(cx); ok {
			done = true
			sleep.Detach()
			return timeoutResult[T]{value: v}, true
		}

		if _, ok := sleep.Poll(cx); ok {
			done = true
			if d, ok := f.(future.Detachable); ok {
				d.Detach()
			}
			var zero T
			return timeoutResult[T]{value: zero, expired: true}, true
		}

		return timeoutResult[T]{}, false
	})
}

// Value returns the result produced by the raced future, or the zero value
// if the timeout fired first.
func (r timeoutResult[T]) Value() (T, bool) { return r.value, !r.expired }

// Expired reports whether the timeout elapsed before f resolved.
func (r timeoutResult[T]) Expired() bool { return r.expired }
