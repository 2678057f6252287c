package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/future"
)

// steps is a trivial future that becomes ready after n polls, returning val.
type steps[T any] struct {
	remaining int
	val       T
}

func (s *steps[T]) Poll(cx *future.Context) (T, bool) {
	if s.remaining > 0 {
		s.remaining--
		cx.Waker.Wake()
		var zero T
		return zero, false
	}
	return s.val, true
}

type panicky struct{ msg any }

func (p *panicky) Poll(cx *future.Context) (struct{}, bool) {
	panic(p.msg)
}

func driveToCompletion[T any](exec *Executor, h *JoinHandle[T]) (T, error) {
	for i := 0; i < 1000; i++ {
		exec.RunTick()
		w := &captureWaker{}
		val, done, err := h.Join(&future.Context{Waker: w})
		if done {
			return val, err
		}
	}
	panic("never completed")
}

type captureWaker struct{}

func (captureWaker) Wake() {}

func TestSpawnAndJoinReturnsValue(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[int](exec, &steps[int]{remaining: 3, val: 7})
	h := NewJoinHandle(exec, tk)

	val, err := driveToCompletion(exec, h)
	require.NoError(t, err)
	require.Equal(t, 7, val)
}

func TestJoinRepanicsOnTaskPanic(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[struct{}](exec, &panicky{msg: "boom"})
	h := NewJoinHandle(exec, tk)

	require.Panics(t, func() {
		_, _ = driveToCompletion(exec, h)
	})
}

func TestAbortBeforeCompletionReturnsAbortedError(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[int](exec, &steps[int]{remaining: 1000, val: 1})
	h := NewJoinHandle(exec, tk)
	h.Abort()

	val, err := driveToCompletion(exec, h)
	require.Zero(t, val)
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
}

func TestJoinAfterTakenReturnsAbortedError(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[int](exec, &steps[int]{remaining: 0, val: 5})
	h := NewJoinHandle(exec, tk)

	val, err := driveToCompletion(exec, h)
	require.NoError(t, err)
	require.Equal(t, 5, val)

	val2, _, err := h.Join(&future.Context{Waker: captureWaker{}})
	require.Zero(t, val2)
	require.Error(t, err)
}

// TestDetachBeforeCompletionKeepsTaskRunning guards against a regression
// where Detach immediately deleted the task's table entry even while it was
// still Pending, silently stopping it from ever being polled again.
func TestDetachBeforeCompletionKeepsTaskRunning(t *testing.T) {
	exec := NewExecutor(0)
	inner := &steps[int]{remaining: 5, val: 9}
	tk := Spawn[int](exec, inner)
	h := NewJoinHandle(exec, tk)
	h.Detach()

	require.Equal(t, 1, exec.TaskCount())

	for i := 0; i < 10 && inner.remaining > 0; i++ {
		exec.RunTick()
	}
	require.Equal(t, 0, inner.remaining, "detached task stopped being polled")
	require.Equal(t, 0, exec.TaskCount(), "completed detached task should be swept")
}

func TestDetachAfterCompletionSweepsImmediately(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[int](exec, &steps[int]{remaining: 0, val: 1})
	h := NewJoinHandle(exec, tk)

	exec.RunTick()
	require.Equal(t, 1, exec.TaskCount())

	h.Detach()
	require.Equal(t, 0, exec.TaskCount())
}

func TestDetachedTaskPanicIsSwallowed(t *testing.T) {
	exec := NewExecutor(0)
	tk := Spawn[struct{}](exec, &panicky{msg: "boom"})
	h := NewJoinHandle(exec, tk)
	h.Detach()

	require.NotPanics(t, func() {
		exec.RunTick()
	})
	require.Equal(t, 0, exec.TaskCount())
}

func TestTaskCountInvariant(t *testing.T) {
	exec := NewExecutor(0)
	require.Equal(t, 0, exec.TaskCount())

	tk := Spawn[int](exec, &steps[int]{remaining: 0, val: 1})
	require.Equal(t, 1, exec.TaskCount())

	h := NewJoinHandle(exec, tk)
	_, err := driveToCompletion(exec, h)
	require.NoError(t, err)
	require.Equal(t, 0, exec.TaskCount(), "Join reclaims the table entry once the terminal payload is taken")
}

func TestStateString(t *testing.T) {
	require.Equal(t, "pending", StatePending.String())
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "panicked", StatePanicked.String())
	require.Equal(t, "aborted", StateAborted.String())
	require.Equal(t, "taken", StateTaken.String())
}
