package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/future"
)

func TestCatchUnwindConvertsPanicToError(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[struct{}](exec, &panicky{msg: "kaboom"})
	h := NewJoinHandle(exec, tk)

	var err error
	for i := 0; i < 100; i++ {
		exec.RunTick()
		_, done, e := h.CatchUnwind(&future.Context{Waker: captureWaker{}})
		if done {
			err = e
			break
		}
	}

	require.Error(t, err)
	var p *Panic
	require.ErrorAs(t, err, &p)
	require.Equal(t, "kaboom", p.Value)
	require.Contains(t, p.Error(), "kaboom")
}

func TestJoinHandleIDStableForLifetime(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[int](exec, &steps[int]{remaining: 0, val: 1})
	h := NewJoinHandle(exec, tk)
	id := h.ID()

	_, err := driveToCompletion(exec, h)
	require.NoError(t, err)
	require.Equal(t, id, h.ID())
}

func TestAbortedErrorMessage(t *testing.T) {
	err := &AbortedError{TaskID: 7}
	require.Contains(t, err.Error(), "7")
}
