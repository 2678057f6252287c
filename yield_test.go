package osiris_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go"
	"github.com/ehrlich-b/osiris-go/future"
)

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

func TestYieldResolvesOnSecondPoll(t *testing.T) {
	y := osiris.Yield()
	w := &countingWaker{}
	cx := &future.Context{Waker: w}

	_, done := y.Poll(cx)
	require.False(t, done)
	require.Equal(t, 1, w.n, "first poll must reschedule itself via the waker")

	_, done = y.Poll(cx)
	require.True(t, done)
}
