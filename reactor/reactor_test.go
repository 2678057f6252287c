package reactor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/buf"
	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/reactor"
	"github.com/ehrlich-b/osiris-go/rtest"
)

type pollWaker struct{ woken bool }

func (w *pollWaker) Wake() { w.woken = true }

// drive polls f until it resolves, draining the ring's completions between
// polls the way Runtime.BlockOn's loop does, with a bound on iterations so a
// bug that never completes fails the test instead of hanging it.
func drive[T any](t *testing.T, r *reactor.Reactor, ring *rtest.FakeRing, f future.Future[T]) T {
	t.Helper()
	w := &pollWaker{}
	cx := &future.Context{Waker: w}
	for i := 0; i < 1000; i++ {
		val, done := f.Poll(cx)
		if done {
			return val
		}
		require.NoError(t, ring.SubmitAndWait())
		r.WakeCompletions()
	}
	t.Fatal("future never completed")
	panic("unreachable")
}

func TestWriteAtThenReadAtRoundTrip(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	fd := ring.AllocFd()
	ring.PutFile(fd, nil)

	wres := drive(t, r, ring, reactor.WriteAt(r, fd, buf.NewBytes([]byte("hello")), 0))
	require.Zero(t, wres.Errno)
	require.Equal(t, 5, wres.N)
	require.Equal(t, "hello", string(ring.File(fd)))

	rres := drive(t, r, ring, reactor.ReadAt(r, fd, buf.NewBytesZeroed(16), 0))
	require.Zero(t, rres.Errno)
	require.Equal(t, "hello", string(rres.Buf.Slice()))
}

func TestSendRecvRoundTrip(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	fd := ring.AllocFd()

	sres := drive(t, r, ring, reactor.Send(r, fd, buf.NewBytes([]byte("ping"))))
	require.Zero(t, sres.Errno)
	require.Equal(t, 4, sres.N)

	rres := drive(t, r, ring, reactor.Recv(r, fd, buf.NewBytesZeroed(32)))
	require.Zero(t, rres.Errno)
	require.Equal(t, "ping", string(rres.Buf.Slice()))
}

func TestAcceptReturnsFreshFd(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	listenFd := ring.AllocFd()
	res := drive(t, r, ring, reactor.Accept(r, listenFd))
	require.Zero(t, res.Errno)
	require.NotEqual(t, listenFd, res.Fd)
}

func TestCloseSucceeds(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	fd := ring.AllocFd()
	res := drive(t, r, ring, reactor.Close(r, fd))
	require.Zero(t, res.Errno)
}

func TestTimeoutResolvesOnlyAfterClockAdvances(t *testing.T) {
	clock := rtest.NewFakeClock()
	r, ring := rtest.NewTestReactor(clock)
	defer r.Close()

	w := &pollWaker{}
	cx := &future.Context{Waker: w}
	to := reactor.Timeout(r, 100)

	_, done := to.Poll(cx)
	require.False(t, done)

	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()
	_, done = to.Poll(cx)
	require.False(t, done, "timeout must not resolve before the clock reaches its duration")

	clock.Advance(100)
	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()
	_, done = to.Poll(cx)
	require.True(t, done)
}

func TestDetachKeepsResourcesPinnedUntilRealCompletion(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	fd := ring.AllocFd()
	op := reactor.WriteAt(r, fd, buf.NewBytes([]byte("data")), 0)

	w := &pollWaker{}
	cx := &future.Context{Waker: w}
	_, done := op.Poll(cx)
	require.False(t, done, "FakeRing defers Write completion until DrainCompletions is asked")

	require.Equal(t, 1, r.PendingOps())
	op.Detach()
	require.Equal(t, 1, r.PendingOps(), "detach must not free the op table entry before the real completion arrives")

	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()
	require.Equal(t, 0, r.PendingOps(), "the real completion, once drained, should retire the detached entry")
}

func TestPollUnknownOpIDPanics(t *testing.T) {
	r, _ := rtest.NewTestReactor(nil)
	defer r.Close()
	require.Panics(t, func() {
		r.Poll(9999, &pollWaker{})
	})
}

type countingObserver struct {
	submits int
	ops     int
	errored int
}

func (o *countingObserver) ObserveSubmit() { o.submits++ }
func (o *countingObserver) ObserveOp(latencyNs uint64, success bool) {
	o.ops++
	if !success {
		o.errored++
	}
}

func TestSetObserverReceivesSubmitAndOpEvents(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	obs := &countingObserver{}
	r.SetObserver(obs)

	fd := ring.AllocFd()
	drive(t, r, ring, reactor.WriteAt(r, fd, buf.NewBytes([]byte("x")), 0))

	require.Equal(t, 1, obs.submits)
	require.Equal(t, 1, obs.ops)
	require.Zero(t, obs.errored)
}

func TestIssueRetriesOnceAfterRingFull(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	fd := ring.AllocFd()
	ring.FailNextPush(1)

	res := drive(t, r, ring, reactor.WriteAt(r, fd, buf.NewBytes([]byte("hi")), 0))
	require.Zero(t, res.Errno, "a single ErrRingFull must be absorbed by a forced submit-and-retry, not surfaced as an op error")
	require.Equal(t, 2, res.N)
}

func TestSetObserverNilRestoresNoOp(t *testing.T) {
	r, ring := rtest.NewTestReactor(nil)
	defer r.Close()

	r.SetObserver(&countingObserver{})
	r.SetObserver(nil)

	fd := ring.AllocFd()
	require.NotPanics(t, func() {
		drive(t, r, ring, reactor.WriteAt(r, fd, buf.NewBytes([]byte("x")), 0))
	})
}
