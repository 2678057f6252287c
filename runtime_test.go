package osiris_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go"
	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/rtest"
)

func TestBlockOnReturnsRootFutureValue(t *testing.T) {
	rtest.WithTestRuntime(nil, func(rt *osiris.Runtime, ring *rtest.FakeRing) {
		val, err := osiris.BlockOn(rt, future.Func[int](func(cx *future.Context) (int, bool) {
			return 42, true
		}))
		require.NoError(t, err)
		require.Equal(t, 42, val)
	})
}

func TestSpawnAndJoinFromWithinBlockOn(t *testing.T) {
	rtest.WithTestRuntime(nil, func(rt *osiris.Runtime, ring *rtest.FakeRing) {
		root := future.Func[int](func(cx *future.Context) (int, bool) {
			h := osiris.Spawn[int](future.Func[int](func(cx *future.Context) (int, bool) {
				return 7, true
			}))
			val, done, err := h.Join(cx)
			if !done {
				return 0, false
			}
			if err != nil {
				return 0, true
			}
			return val, true
		})

		val, err := osiris.BlockOn(rt, root)
		require.NoError(t, err)
		require.Equal(t, 7, val)
	})
}

func TestSpawnOutsideBlockOnPanics(t *testing.T) {
	require.Panics(t, func() {
		osiris.Spawn[int](future.Func[int](func(cx *future.Context) (int, bool) {
			return 0, true
		}))
	})
}

func TestCurrentReactorOutsideBlockOnPanics(t *testing.T) {
	require.Panics(t, func() {
		osiris.CurrentReactor()
	})
}

func TestCurrentTaskIDOutsideBlockOnPanics(t *testing.T) {
	require.Panics(t, func() {
		osiris.CurrentTaskID()
	})
}

func TestCurrentTaskIDInsideSpawnedTaskIsNonZero(t *testing.T) {
	rtest.WithTestRuntime(nil, func(rt *osiris.Runtime, ring *rtest.FakeRing) {
		var seen uint64
		root := future.Func[struct{}](func(cx *future.Context) (struct{}, bool) {
			h := osiris.Spawn[struct{}](future.Func[struct{}](func(cx *future.Context) (struct{}, bool) {
				seen = osiris.CurrentTaskID()
				return struct{}{}, true
			}))
			_, done, _ := h.Join(cx)
			return struct{}{}, done
		})

		_, err := osiris.BlockOn(rt, root)
		require.NoError(t, err)
		require.NotZero(t, seen)
	})
}
