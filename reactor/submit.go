package reactor

import "github.com/ehrlich-b/osiris-go/future"

// SubmitResult is what a submitFuture resolves to: the raw completion plus
// the resource bundle handed back so the caller regains ownership (to read
// an initialized buffer, reuse a connect's sockaddr allocation, etc.) —
// the same (Result<CQE>, resources) shape as the source runtime's
// reactor::iouring::op::submit.
type SubmitResult[R any] struct {
	CQE       CQE
	Resources R
}

// submitFuture is the keystone completion-safe primitive every op in
// ops.go is built from. Submit issues the SQE exactly once on first poll,
// immediately pins resources on the Reactor's op table (see Reactor.Pin),
// and from then on just polls the reactor for the matching completion.
//
// Cancellation safety: if the caller stops polling this future before it
// resolves — the losing branch of a timeout, a task that gets aborted —
// the resources are NOT freed just because nothing polls this struct
// anymore, because Reactor.Pin already gave the Reactor table its own
// reference. Detach (see Detach below) additionally tells WakeCompletions
// to discard the eventual real completion silently instead of waking a
// waker that no longer corresponds to a live poll loop.
type submitFuture[R any] struct {
	reactor   *Reactor
	entry     SQE
	resources R
	submitted bool
	id        uint64
}

// Submit builds the future that issues entry against r, keeping resources
// pinned until completion. R is typically a buf.StableBuffer(Mut) or a
// struct bundling one with ancillary allocations (see ops.go).
func Submit[R any](r *Reactor, entry SQE, resources R) *submitFuture[R] {
	return &submitFuture[R]{reactor: r, entry: entry, resources: resources}
}

var _ future.Future[SubmitResult[int]] = (*submitFuture[int])(nil)
var _ future.Detachable = (*submitFuture[int])(nil)

func (f *submitFuture[R]) Poll(cx *future.Context) (SubmitResult[R], bool) {
	if !f.submitted {
		id, err := f.reactor.Issue(f.entry)
		if err != nil {
			// Issue already forces a submit-and-retry on ErrRingFull, so
			// whatever reaches here survived that and is a genuine backend
			// failure. Report it as a completion with a synthetic negative
			// result rather than panicking — the caller's op wrapper reports
			// it as Errno 1 in its result, not as a runtime bug.
			return SubmitResult[R]{CQE: CQE{Res: -1}, Resources: f.resources}, true
		}
		f.submitted = true
		f.id = id
		f.reactor.Pin(id, f.resources)
	}

	cqe, ready := f.reactor.Poll(f.id, cx.Waker)
	if !ready {
		return SubmitResult[R]{}, false
	}
	return SubmitResult[R]{CQE: cqe, Resources: f.resources}, true
}

// Detach abandons interest in this op's result while keeping the resource
// bundle pinned (via the Reactor's own table entry) and telling the
// Reactor to silently discard the real completion when it eventually
// arrives, instead of treating a missing waker as a bug. It also asks the
// backend to attempt cancellation, though the op may already be racing to
// complete regardless.
func (f *submitFuture[R]) Detach() {
	if !f.submitted {
		return
	}
	f.reactor.Detach(f.id)
	_ = f.reactor.Cancel(f.id)
}

// OpFuture adapts a submitFuture's raw SubmitResult into the typed result
// each function in ops.go actually returns (ReadResult, AcceptResult, ...),
// while still forwarding Detach to the underlying submitFuture. This is
// what lets a combinator like rtime.Timeout detach the losing branch of
// any op in ops.go: unlike wrapping with a plain future.Func closure,
// OpFuture keeps the Detachable method set visible on the outside.
type OpFuture[R, T any] struct {
	inner     *submitFuture[R]
	transform func(SubmitResult[R]) T
}

// NewOpFuture builds an OpFuture around inner, applying transform to its
// result once it resolves.
func NewOpFuture[R, T any](inner *submitFuture[R], transform func(SubmitResult[R]) T) *OpFuture[R, T] {
	return &OpFuture[R, T]{inner: inner, transform: transform}
}

func (o *OpFuture[R, T]) Poll(cx *future.Context) (T, bool) {
	res, done := o.inner.Poll(cx)
	if !done {
		var zero T
		return zero, false
	}
	return o.transform(res), true
}

func (o *OpFuture[R, T]) Detach() { o.inner.Detach() }

var _ future.Detachable = (*OpFuture[int, int])(nil)
