package future

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

func TestFuncAdaptsPlainFunction(t *testing.T) {
	calls := 0
	f := Func[int](func(cx *Context) (int, bool) {
		calls++
		if calls < 3 {
			return 0, false
		}
		return 42, true
	})

	var f2 Future[int] = f
	w := &countingWaker{}
	cx := &Context{Waker: w}

	for i := 0; i < 2; i++ {
		_, done := f2.Poll(cx)
		require.False(t, done)
	}
	val, done := f2.Poll(cx)
	require.True(t, done)
	require.Equal(t, 42, val)
	require.Equal(t, 3, calls)
}

func TestWakerWakeIsObservable(t *testing.T) {
	w := &countingWaker{}
	cx := &Context{Waker: w}
	cx.Waker.Wake()
	cx.Waker.Wake()
	require.Equal(t, 2, w.n)
}
