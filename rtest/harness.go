// Package rtest provides test-support types for code built on osiris-go:
// an in-memory Ring backend so tests never touch a real io_uring/epoll/
// kqueue, a FakeClock for deterministic timeout/sleep tests, and a runtime
// harness wiring both into a Runtime a test can BlockOn directly. This is
// the Go analogue of the teacher repo's root testing.go (MockBackend),
// translated from "fake block device" to "fake reactor backend" since
// this module's domain is the reactor rather than block I/O.
package rtest

import (
	"sync"
	"unsafe"

	"github.com/ehrlich-b/osiris-go"
	"github.com/ehrlich-b/osiris-go/internal/rlog"
	"github.com/ehrlich-b/osiris-go/reactor"
)

func unsafeSlice(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// FakeClock is a manually-advanced virtual clock that FakeRing consults
// for OpTimeout entries instead of a real monotonic clock, so timeout and
// sleep tests don't need to sleep the real test process.
type FakeClock struct {
	mu  sync.Mutex
	now int64
}

// NewFakeClock creates a clock starting at virtual time zero.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// Advance moves the clock forward by d nanoseconds.
func (c *FakeClock) Advance(d int64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func (c *FakeClock) now64() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// pendingTimeout is a parked OpTimeout entry waiting for the clock to
// reach its due time.
type pendingTimeout struct {
	userData uint64
	due      int64
}

// FakeRing is an in-memory reactor.Ring: reads and writes hit a per-fd byte
// slice instead of a real file descriptor, socket ops are stubbed to
// succeed trivially, and every op except OpTimeout completes on the very
// next DrainCompletions call — the point being determinism, not realism.
// Register file contents with PutFile before a test's task tries to read
// them.
type FakeRing struct {
	mu         sync.Mutex
	files      map[int32][]byte
	clock      *FakeClock
	ready      []reactor.CQE
	timeouts   []pendingTimeout
	nextFd     int32
	closed     bool
	failPushes int
}

// NewFakeRing builds a FakeRing. If clock is nil, OpTimeout entries
// resolve immediately (useful for tests that don't care about timing at
// all); if non-nil, they resolve only once Advance has moved the clock
// by at least their requested duration.
func NewFakeRing(clock *FakeClock) *FakeRing {
	return &FakeRing{
		files:  make(map[int32][]byte),
		clock:  clock,
		nextFd: 1000,
	}
}

// PutFile registers fd's backing content; ReadAt/WriteAt ops against fd
// operate on this slice directly (WriteAt grows it as needed).
func (r *FakeRing) PutFile(fd int32, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[fd] = content
}

// File returns fd's current backing content, for a test to assert against
// after a WriteAt-driven task completes.
func (r *FakeRing) File(fd int32) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files[fd]
}

// FailNextPush makes the next n calls to Push return ErrRingFull instead of
// enqueueing, simulating a submission queue that's momentarily full so a
// test can exercise Reactor.Issue's forced-submit-and-retry path.
func (r *FakeRing) FailNextPush(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPushes = n
}

// AllocFd returns a fresh fd number with empty backing content, the fake
// equivalent of what OpenAt/Accept would hand back from the kernel.
func (r *FakeRing) AllocFd() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextFd++
	r.files[r.nextFd] = nil
	return r.nextFd
}

func ptrToBytes(addr uintptr, n uint32) []byte {
	if addr == 0 || n == 0 {
		return nil
	}
	return unsafeSlice(addr, int(n))
}

func (r *FakeRing) Push(entry reactor.SQE) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return reactor.ErrRingFull
	}
	if r.failPushes > 0 {
		r.failPushes--
		return reactor.ErrRingFull
	}

	switch entry.Opcode {
	case reactor.OpTimeout:
		due := entry.TimeoutNs
		if r.clock != nil {
			due += r.clock.now64()
			r.timeouts = append(r.timeouts, pendingTimeout{userData: entry.UserData, due: due})
			return nil
		}
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: 0})
		return nil

	case reactor.OpRead, reactor.OpRecv:
		data := r.files[entry.Fd]
		pos := int(entry.Offset)
		if entry.Opcode == reactor.OpRecv {
			pos = 0
		}
		if pos > len(data) {
			pos = len(data)
		}
		n := copy(ptrToBytes(entry.Addr, entry.Len), data[pos:])
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: int32(n)})
		return nil

	case reactor.OpWrite, reactor.OpSend:
		src := ptrToBytes(entry.Addr, entry.Len)
		pos := int(entry.Offset)
		if entry.Opcode == reactor.OpSend {
			pos = len(r.files[entry.Fd])
		}
		data := r.files[entry.Fd]
		needed := pos + len(src)
		if needed > len(data) {
			grown := make([]byte, needed)
			copy(grown, data)
			data = grown
		}
		copy(data[pos:], src)
		r.files[entry.Fd] = data
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: int32(len(src))})
		return nil

	case reactor.OpAccept:
		r.nextFd++
		r.files[r.nextFd] = nil
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: r.nextFd})
		return nil

	case reactor.OpOpenAt:
		r.nextFd++
		r.files[r.nextFd] = nil
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: r.nextFd})
		return nil

	case reactor.OpCancel:
		r.cancelLocked(entry.CancelTarget)
		return nil

	default:
		// Connect, Close, UnlinkAt, MkdirAt, Statx, Shutdown, Fsync, Nop
		// all trivially succeed in the fake backend.
		r.ready = append(r.ready, reactor.CQE{UserData: entry.UserData, Res: 0})
		return nil
	}
}

func (r *FakeRing) cancelLocked(target uint64) {
	kept := r.timeouts[:0]
	for _, t := range r.timeouts {
		if t.userData == target {
			continue
		}
		kept = append(kept, t)
	}
	r.timeouts = kept
}

func (r *FakeRing) SubmitAndYield() error { return nil }

// SubmitAndWait in the fake backend just ensures every outstanding
// OpTimeout whose due time has already passed (per the attached
// FakeClock, if any) is surfaced — there is nothing to actually block on
// since every other op resolved synchronously inside Push.
func (r *FakeRing) SubmitAndWait() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainDueTimeoutsLocked()
	return nil
}

func (r *FakeRing) drainDueTimeoutsLocked() {
	if r.clock == nil {
		return
	}
	now := r.clock.now64()
	var remaining []pendingTimeout
	for _, t := range r.timeouts {
		if t.due <= now {
			r.ready = append(r.ready, reactor.CQE{UserData: t.userData, Res: 0})
		} else {
			remaining = append(remaining, t)
		}
	}
	r.timeouts = remaining
}

func (r *FakeRing) DrainCompletions() []reactor.CQE {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainDueTimeoutsLocked()
	out := r.ready
	r.ready = nil
	return out
}

func (r *FakeRing) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

var _ reactor.Ring = (*FakeRing)(nil)

// NewTestReactor builds a Reactor over a fresh FakeRing, for tests that
// drive package reactor or rtime directly without a full Runtime.
func NewTestReactor(clock *FakeClock) (*reactor.Reactor, *FakeRing) {
	ring := NewFakeRing(clock)
	return reactor.New(ring), ring
}

// WithTestRuntime builds an osiris.Runtime over a fresh FakeRing and calls
// fn with it and the ring (so fn can PutFile/AllocFd/Advance the clock
// before or during the test), the Go equivalent of the teacher's
// NewMockBackend-based unit tests but for the reactor layer instead of a
// single backend. The Runtime is not entered (BlockOn) by this helper —
// callers decide whether to drive it themselves or pass it to BlockOn.
func WithTestRuntime(clock *FakeClock, fn func(rt *osiris.Runtime, ring *FakeRing)) {
	ring := NewFakeRing(clock)
	cfg := osiris.Config{
		RingEntries: 64,
		Logger:      QuietLogger(),
	}
	rt := osiris.NewWithRing(cfg, ring)
	defer rt.Close()
	fn(rt, ring)
}

// QuietLogger returns a Logger configured to only emit Error-level
// messages, for tests that don't want BlockOn's Debug/Warn chatter in
// `go test -v` output.
func QuietLogger() *rlog.Logger {
	return rlog.New(&rlog.Config{Level: rlog.LevelError})
}
