package osiris

import (
	"runtime"
	"sync"

	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/internal/rlog"
	"github.com/ehrlich-b/osiris-go/internal/rtid"
	"github.com/ehrlich-b/osiris-go/reactor"
	"github.com/ehrlich-b/osiris-go/task"
)

// Runtime is one thread-per-core executor+reactor pair. A process that
// wants N cores running osiris work builds N Runtimes, each entered via
// BlockOn on its own pinned OS thread — there is deliberately no
// cross-Runtime task migration, the same "share nothing, pin everything"
// design as the source runtime this package is modeled on.
type Runtime struct {
	cfg      Config
	exec     *task.Executor
	reactor  *reactor.Reactor
	logger   *rlog.Logger
	observer Observer
}

// taskObserverAdapter narrows root's wider Observer (which also covers
// reactor ops) down to the task package's local Observer interface,
// keeping task free of any import on this package.
type taskObserverAdapter struct {
	obs Observer
}

func (a taskObserverAdapter) ObserveSpawn() { a.obs.ObserveSpawn() }
func (a taskObserverAdapter) ObserveTaskDone(panicked, aborted bool) {
	a.obs.ObserveTaskDone(panicked, aborted)
}
func (a taskObserverAdapter) ObserveRunQueueDepth(depth uint32) {
	a.obs.ObserveRunQueueDepth(depth)
}

// reactorObserverAdapter narrows root's Observer down to package reactor's
// local Observer interface, the same purpose taskObserverAdapter serves for
// package task.
type reactorObserverAdapter struct {
	obs Observer
}

func (a reactorObserverAdapter) ObserveSubmit() { a.obs.ObserveSubmit() }
func (a reactorObserverAdapter) ObserveOp(latencyNs uint64, success bool) {
	a.obs.ObserveOp(latencyNs, success)
}

// New builds a Runtime from cfg, constructing the platform-appropriate
// reactor backend (io_uring, falling back to epoll, on Linux; kqueue on
// BSD/Darwin) via reactor.NewRing. The Runtime is inert until entered with
// BlockOn — no OS thread is pinned and no op is submitted until then
// (constructing the backend itself does make its setup syscalls).
func New(cfg Config) (*Runtime, error) {
	cfg = withDefaults(cfg)

	ring, err := reactor.NewRing(reactor.Config{Entries: cfg.RingEntries}, cfg.Logger)
	if err != nil {
		return nil, WrapError("osiris.New", err)
	}

	return newWithRing(cfg, ring), nil
}

// NewWithRing builds a Runtime over a caller-supplied Ring instead of the
// platform-default backend reactor.NewRing would choose. This is the seam
// package rtest's WithTestRuntime uses to substitute FakeRing, and is also
// the right entry point for an embedder that already owns a ring (e.g. one
// shared with non-osiris code) instead of letting New construct one.
func NewWithRing(cfg Config, ring reactor.Ring) *Runtime {
	cfg = withDefaults(cfg)
	return newWithRing(cfg, ring)
}

func newWithRing(cfg Config, ring reactor.Ring) *Runtime {
	exec := task.NewExecutor(cfg.EventInterval)
	obs := cfg.Observer
	if obs == nil {
		obs = NoOpObserver{}
	}
	exec.SetObserver(taskObserverAdapter{obs: obs})

	rtr := reactor.New(ring)
	rtr.SetObserver(reactorObserverAdapter{obs: obs})

	return &Runtime{
		cfg:      cfg,
		exec:     exec,
		reactor:  rtr,
		logger:   cfg.Logger,
		observer: obs,
	}
}

var (
	registryMu sync.Mutex
	registry   = map[int]*Runtime{}
)

func registerCurrent(rt *Runtime) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[rtid.Current()] = rt
}

func unregisterCurrent() {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, rtid.Current())
}

func currentRuntime() *Runtime {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[rtid.Current()]
}

// BlockOn pins the calling goroutine to its OS thread, enters rt as "the
// current runtime" for that thread (so package-level Spawn and
// CurrentTaskID work from within fut and anything it spawns), and drives
// the executor/reactor loop until fut resolves.
//
// Like the teacher repo's per-queue ioLoop, the driving loop alternates
// between doing ready work (RunTick) and waiting on the kernel for more
// (SubmitAndWait/SubmitAndYield depending on Mode) — there is no separate
// polling goroutine, by design: thread-per-core means one goroutine does
// both the scheduling and the I/O waiting.
//
// BlockOn panics if a runtime is already entered on the calling thread
// (a nested BlockOn).
func BlockOn[T any](rt *Runtime, fut future.Future[T]) (T, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if currentRuntime() != nil {
		panic("osiris: BlockOn called while a runtime is already entered on this thread")
	}

	setAffinity(rt.cfg.CPUAffinity, rt.logger)

	registerCurrent(rt)
	defer unregisterCurrent()

	root := task.Spawn(rt.exec, fut)
	handle := task.NewJoinHandle(rt.exec, root)

	waker := &blockOnWaker{}
	cx := &future.Context{Waker: waker}

	for {
		rt.exec.RunTick()

		val, done, err := handle.Join(cx)
		if done {
			return val, err
		}

		if rt.exec.AnyWoken() {
			if serr := rt.reactor.SubmitAndYield(); serr != nil {
				rt.logger.Warn("submit_and_yield failed", "error", serr)
			}
			rt.reactor.WakeCompletions()
			continue
		}

		var waitErr error
		switch rt.cfg.Mode {
		case ModePolling:
			waitErr = rt.reactor.SubmitAndYield()
		default:
			waitErr = rt.reactor.SubmitAndWait()
		}
		if waitErr != nil {
			rt.logger.Warn("reactor wait failed", "error", waitErr)
		}
		rt.reactor.WakeCompletions()
	}
}

// blockOnWaker is the waker handed to the root future's poll context. Its
// Wake is a no-op: BlockOn's loop already retries RunTick/Join every
// iteration unconditionally, so there is nothing to schedule — this is
// only here because future.Context requires a non-nil Waker for a
// top-level Join call that isn't itself backed by the task executor's
// idWaker.
type blockOnWaker struct{}

func (blockOnWaker) Wake() {}

func setAffinity(cpus []int, logger *rlog.Logger) {
	if len(cpus) == 0 {
		return
	}
	if err := pinCurrentThread(cpus[0]); err != nil {
		logger.Warn("failed to set CPU affinity", "cpu", cpus[0], "error", err)
		return
	}
	logger.Debug("pinned runtime thread", "cpu", cpus[0])
}

// Spawn schedules fut on the Runtime currently entered (via BlockOn) on
// this OS thread, returning a handle the caller can Join, Abort, or
// Detach. It panics if called from outside BlockOn — there is always
// exactly one current Runtime per thread while a BlockOn loop is running,
// and never one otherwise.
func Spawn[T any](fut future.Future[T]) *task.JoinHandle[T] {
	rt := currentRuntime()
	if rt == nil {
		panic("osiris: Spawn called with no runtime entered on this thread (call from inside BlockOn)")
	}
	t := task.Spawn(rt.exec, fut)
	return task.NewJoinHandle(rt.exec, t)
}

// CurrentTaskID returns the id of the task currently executing on this
// thread's Runtime. It panics if called from outside any task's poll
// (outside BlockOn, or directly inside BlockOn's own loop).
func CurrentTaskID() uint64 {
	rt := currentRuntime()
	if rt == nil {
		panic("osiris: CurrentTaskID called with no runtime entered on this thread (call from inside a task)")
	}
	id := rt.exec.CurrentID()
	if id == 0 {
		panic("osiris: CurrentTaskID called outside of a task")
	}
	return id
}

// CurrentReactor returns the Reactor belonging to the Runtime entered on
// this thread, for packages (rtime, and user code building new ops on top
// of package reactor directly) that need to submit work against it. Panics
// outside BlockOn for the same reason Spawn does.
func CurrentReactor() *reactor.Reactor {
	rt := currentRuntime()
	if rt == nil {
		panic("osiris: CurrentReactor called with no runtime entered on this thread (call from inside BlockOn)")
	}
	return rt.reactor
}

// Close tears down the Runtime's reactor (and its ring). Call only after
// BlockOn has returned; a Runtime must not be closed while a BlockOn loop
// is still driving it.
func (rt *Runtime) Close() error {
	return rt.reactor.Close()
}
