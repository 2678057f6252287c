package rtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/rtest"
	"github.com/ehrlich-b/osiris-go/rtime"
)

// instant resolves to val on its very first poll.
type instant[T any] struct{ val T }

func (f *instant[T]) Poll(cx *future.Context) (T, bool) { return f.val, true }

// never never resolves on its own; a test Detaches it through Timeout's
// losing-branch path instead.
type never struct{ detached bool }

func (n *never) Poll(cx *future.Context) (struct{}, bool) { return struct{}{}, false }
func (n *never) Detach()                                  { n.detached = true }

func TestTimeoutReturnsInnerValueWhenItWinsTheRace(t *testing.T) {
	clock := rtest.NewFakeClock()
	r, _ := rtest.NewTestReactor(clock)
	defer r.Close()

	fut := rtime.Timeout[int](r, time.Second, &instant[int]{val: 7})
	cx := &future.Context{Waker: &pollWaker{}}

	res, done := fut.Poll(cx)
	require.True(t, done)
	require.False(t, res.Expired())
	val, ok := res.Value()
	require.True(t, ok)
	require.Equal(t, 7, val)
}

func TestTimeoutExpiresAndDetachesLosingFuture(t *testing.T) {
	clock := rtest.NewFakeClock()
	r, ring := rtest.NewTestReactor(clock)
	defer r.Close()

	inner := &never{}
	fut := rtime.Timeout[struct{}](r, 10, inner)
	cx := &future.Context{Waker: &pollWaker{}}

	_, done := fut.Poll(cx)
	require.False(t, done)

	clock.Advance(10)
	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()

	res, done := fut.Poll(cx)
	require.True(t, done)
	require.True(t, res.Expired())
	require.True(t, inner.detached, "losing future must be detached when the timeout fires first")
}
