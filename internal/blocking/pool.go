// Package blocking runs work that must not block a Runtime's pinned OS
// thread (arbitrary syscalls without an io_uring/epoll/kqueue equivalent,
// CPU-bound hashing, blocking third-party client calls) on a separate
// worker pool, handing the result back to the calling task through a
// future the Runtime's own run queue can poll like any other pending work.
package blocking

import (
	"context"
	"sync"

	"github.com/ygrebnov/workers"

	"github.com/ehrlich-b/osiris-go/future"
)

// Pool dispatches blocking closures to a bounded ygrebnov/workers pool
// instead of running them on a Runtime's OS thread, the way this runtime's
// reactor handles everything that DOES have a completion-ring primitive —
// Pool exists for the things that don't.
type Pool struct {
	w workers.Workers[struct{}]
}

// Config mirrors the handful of ygrebnov/workers.Config knobs this package
// actually needs; MaxWorkers of zero lets the pool size itself
// dynamically, the default recommended by that package.
type Config struct {
	MaxWorkers uint
}

// New starts a blocking-work pool bound to ctx; cancelling ctx tears the
// pool down. The pool itself carries no result type (each Spawn call
// builds its own completion channel instead of routing through the
// pool's shared GetResults channel, which has no per-task identity), so
// the pool's generic result type is the uninteresting struct{}.
func New(ctx context.Context, cfg Config) *Pool {
	w := workers.New[struct{}](ctx, &workers.Config{
		MaxWorkers:       cfg.MaxWorkers,
		StartImmediately: true,
	})
	return &Pool{w: w}
}

// result is the one-shot mailbox a Spawn call's task closure delivers into
// and Future.Poll drains from; waker is stashed here (behind mu) so the
// worker goroutine can wake the polling task exactly once, the instant the
// blocking call returns.
type result[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	waker future.Waker
}

func (r *result[T]) deliver(value T) {
	r.mu.Lock()
	r.value = value
	r.done = true
	w := r.waker
	r.waker = nil
	r.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

type blockingFuture[T any] struct {
	r *result[T]
}

func (f *blockingFuture[T]) Poll(cx *future.Context) (T, bool) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.done {
		return f.r.value, true
	}
	f.r.waker = cx.Waker
	var zero T
	return zero, false
}

// Result is the (value, error) pair a blocking call resolves to. future.Future
// has no error channel of its own, so Spawn bundles it into T the same way
// rtime.Timeout bundles expiry into its own result type.
type Result[T any] struct {
	Value T
	Err   error
}

// Spawn runs fn on the pool and returns a future that resolves to its
// result once fn returns, without ever blocking the calling Runtime's OS
// thread in the meantime. fn should itself honor ctx for cancellation;
// Pool has no way to forcibly interrupt a fn already running on a worker
// goroutine.
func Spawn[T any](p *Pool, fn func(ctx context.Context) (T, error)) future.Future[Result[T]] {
	r := &result[Result[T]]{}
	task := func(ctx context.Context) (struct{}, error) {
		value, err := fn(ctx)
		r.deliver(Result[T]{Value: value, Err: err})
		return struct{}{}, nil
	}
	if err := p.w.AddTask(task); err != nil {
		r.deliver(Result[T]{Err: err})
	}
	return &blockingFuture[Result[T]]{r: r}
}
