package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/osiris-go/buf"
)

func TestGetReturnsCapacityAtLeastRequested(t *testing.T) {
	for _, n := range []int{1, 100, minClassSize, minClassSize + 1, maxClassSize} {
		b := Get(n)
		require.GreaterOrEqual(t, b.BytesTotal(), n)
		require.Equal(t, 0, b.BytesInit())
	}
}

func TestGetAboveMaxClassAllocatesDirectly(t *testing.T) {
	b := Get(maxClassSize + 1)
	require.Equal(t, maxClassSize+1, b.BytesTotal())
}

func TestPutThenGetReusesBuffer(t *testing.T) {
	b := Get(minClassSize)
	b.SetInit(minClassSize)
	Put(b)

	b2 := Get(minClassSize)
	require.Equal(t, 0, b2.BytesInit(), "a reused buffer must come back with its init length reset")
}

func TestClassIndexMonotonic(t *testing.T) {
	prev := -1
	for _, n := range []int{1, minClassSize, minClassSize + 1, minClassSize * 2, minClassSize*4 + 7} {
		idx := classIndex(n)
		require.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
}

func TestPutOfUnpooledSizeIsDropped(t *testing.T) {
	odd := buf.NewBytesZeroed(12345) // not any class's exact size
	require.NotPanics(t, func() { Put(odd) })
}
