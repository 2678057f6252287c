package reactor

import (
	"sync"
	"time"

	"github.com/ehrlich-b/osiris-go/future"
)

// Observer lets a Reactor report op submit/completion events to a metrics
// sink, narrowed from the root package's wider Observer the same way
// task.Observer is (see runtime.go's taskObserverAdapter) so this package
// never has to import the root one.
type Observer interface {
	ObserveSubmit()
	ObserveOp(latencyNs uint64, success bool)
}

type noOpObserver struct{}

func (noOpObserver) ObserveSubmit()         {}
func (noOpObserver) ObserveOp(uint64, bool) {}

// opState tracks a single in-flight op id: either a parked waker (still
// pending) or an arrived completion not yet collected by Poll. This is the
// Go equivalent of the source runtime's
// HashMap<u64, ControlFlow<cqueue::Entry, Waker>>.
type opState struct {
	waker    future.Waker // set while pending
	complete bool
	cqe      CQE
	detached bool // Detach was called; drop the completion silently on arrival
	// pinned holds whatever resource bundle (typically a buf.StableBuffer
	// plus any ancillary allocations, e.g. a sockaddr) must stay alive
	// until this op's real completion arrives. The Reactor itself — not
	// the submit future — is what keeps this reachable, which is what
	// makes detaching a losing timeout branch memory-safe: even if every
	// other reference to the resources drops away, r.ops[id].pinned keeps
	// the garbage collector from reclaiming them until WakeCompletions
	// observes the matching CQE and deletes the table entry.
	pinned any

	// submittedAt is when Issue pushed this op, used to compute
	// submit-to-completion latency for Observer.ObserveOp.
	submittedAt time.Time
}

// Reactor owns one Ring and the op-id table of in-flight operations for a
// single OS thread. Like the source runtime's Driver, it is not safe for
// concurrent use — exactly one Executor loop drives it.
type Reactor struct {
	mu     sync.Mutex
	ring   Ring
	ops    map[uint64]*opState
	nextID uint64
	obs    Observer
}

// New creates a Reactor over the given Ring. Ownership of ring transfers to
// the Reactor; Close on the Reactor closes ring too.
func New(ring Ring) *Reactor {
	return &Reactor{
		ring: ring,
		ops:  make(map[uint64]*opState),
		obs:  noOpObserver{},
	}
}

// SetObserver installs obs to receive submit/completion events from this
// point on. Passing nil restores the no-op observer.
func (r *Reactor) SetObserver(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obs == nil {
		obs = noOpObserver{}
	}
	r.obs = obs
}

// nextOpID allocates a fresh op id, never zero so zero can be used as a
// sentinel by callers that track "no op submitted yet".
func (r *Reactor) nextOpID() uint64 {
	r.nextID++
	return r.nextID
}

// Issue pushes entry to the ring, assigning it a fresh UserData id and
// recording a pending opState for it. Returns the assigned id so the
// submit future can poll for it later.
//
// A full submission queue is not a failure: Push returning ErrRingFull
// means the ring just needs draining, so Issue forces a SubmitAndYield and
// retries the push exactly once before surfacing any error to the caller.
func (r *Reactor) Issue(entry SQE) (uint64, error) {
	r.mu.Lock()
	id := r.nextOpID()
	entry.UserData = id
	r.ops[id] = &opState{submittedAt: time.Now()}
	obs := r.obs
	r.mu.Unlock()

	err := r.ring.Push(entry)
	if err == ErrRingFull {
		if yerr := r.ring.SubmitAndYield(); yerr != nil {
			r.mu.Lock()
			delete(r.ops, id)
			r.mu.Unlock()
			return 0, yerr
		}
		err = r.ring.Push(entry)
	}
	if err != nil {
		r.mu.Lock()
		delete(r.ops, id)
		r.mu.Unlock()
		return 0, err
	}
	obs.ObserveSubmit()
	return id, nil
}

// Pin attaches resources to op id's table entry so they stay reachable for
// as long as the Reactor itself tracks the op, regardless of whether the
// submit future that issued it is still being polled. Submit calls this
// immediately after Issue succeeds.
func (r *Reactor) Pin(id uint64, resources any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.ops[id]; ok {
		st.pinned = resources
	}
}

// Poll reports whether op id has completed. If not, it parks waker to be
// woken on arrival (overwriting any previously parked waker for this id,
// same as the source runtime's Driver.poll re-inserting Continue(waker)).
// If the op is unknown (already collected, or never issued) Poll panics —
// that is always a bug in this package's own bookkeeping, never a caller
// mistake, since callers only ever poll ids Issue gave them.
func (r *Reactor) Poll(id uint64, waker future.Waker) (CQE, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.ops[id]
	if !ok {
		panic("osiris: internal invariant violated: reactor polled for unknown op id (bug in reactor bookkeeping)")
	}
	if st.complete {
		cqe := st.cqe
		delete(r.ops, id)
		return cqe, true
	}
	st.waker = waker
	return CQE{}, false
}

// Cancel requests the kernel cancel the in-flight op id (best-effort — the
// op may already be racing to completion) and removes its table entry once
// the cancellation or original completion arrives. Called from
// submitFuture.Detach, which is how rtime.Timeout's losing sleep reaches
// it; JoinHandle.Abort does not cancel ops.
func (r *Reactor) Cancel(id uint64) error {
	r.mu.Lock()
	_, ok := r.ops[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.ring.Push(SQE{Opcode: OpCancel, CancelTarget: id, UserData: r.issuePlaceholderID()})
}

func (r *Reactor) issuePlaceholderID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextOpID()
}

// Detach marks op id's eventual completion to be discarded rather than
// woken up for, without removing the kernel-side operation. This is the
// mechanism that keeps a cancelled submit future's resource bundle from
// being freed before the kernel actually replies: the opState (and
// whatever resources the submit future closed over) stays reachable until
// DrainCompletions processes the real CQE, at which point the entry is
// dropped instead of a waker being woken.
func (r *Reactor) Detach(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.ops[id]; ok {
		st.waker = nil
		st.detached = true
	}
}

// SubmitAndYield flushes pending submissions without blocking.
func (r *Reactor) SubmitAndYield() error {
	return r.ring.SubmitAndYield()
}

// SubmitAndWait flushes pending submissions and blocks until at least one
// completion is ready.
func (r *Reactor) SubmitAndWait() error {
	return r.ring.SubmitAndWait()
}

// WakeCompletions drains ready CQEs from the ring and wakes the task parked
// on each one, or drops the completion silently if that op was detached.
// Mirrors Driver.wake_tasks: a CQE with no matching table entry is always
// an internal bug (a double-complete, or a stale id reused), never a
// recoverable condition.
func (r *Reactor) WakeCompletions() (woken int) {
	cqes := r.ring.DrainCompletions()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cqe := range cqes {
		st, ok := r.ops[cqe.UserData]
		if !ok {
			panic("osiris: internal invariant violated: completion received for unknown op id (lost waker)")
		}
		if st.detached {
			delete(r.ops, cqe.UserData)
			continue
		}
		if st.complete {
			panic("osiris: internal invariant violated: op received more than one completion")
		}
		st.complete = true
		st.cqe = cqe
		r.obs.ObserveOp(uint64(time.Since(st.submittedAt).Nanoseconds()), cqe.Res >= 0)
		w := st.waker
		st.waker = nil
		if w != nil {
			woken++
			w.Wake()
		}
	}
	return woken
}

// PendingOps returns the number of ops still tracked (in flight or
// completed-but-uncollected). Used by tests.
func (r *Reactor) PendingOps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Close closes the underlying ring.
func (r *Reactor) Close() error {
	return r.ring.Close()
}
