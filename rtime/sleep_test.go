package rtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/rtest"
	"github.com/ehrlich-b/osiris-go/rtime"
)

type pollWaker struct{ woken bool }

func (w *pollWaker) Wake() { w.woken = true }

func TestSleepWaitsForClockAdvance(t *testing.T) {
	clock := rtest.NewFakeClock()
	r, ring := rtest.NewTestReactor(clock)
	defer r.Close()

	s := rtime.Sleep(r, 50*time.Millisecond)
	cx := &future.Context{Waker: &pollWaker{}}

	_, done := s.Poll(cx)
	require.False(t, done)

	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()
	_, done = s.Poll(cx)
	require.False(t, done)

	clock.Advance((50 * time.Millisecond).Nanoseconds())
	require.NoError(t, ring.SubmitAndWait())
	r.WakeCompletions()
	_, done = s.Poll(cx)
	require.True(t, done)
}

func TestSleepDetachDoesNotPanic(t *testing.T) {
	clock := rtest.NewFakeClock()
	r, _ := rtest.NewTestReactor(clock)
	defer r.Close()

	s := rtime.Sleep(r, time.Second)
	cx := &future.Context{Waker: &pollWaker{}}
	_, done := s.Poll(cx)
	require.False(t, done)

	require.NotPanics(t, func() { s.Detach() })
}
