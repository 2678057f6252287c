package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceOutOfRangePanics(t *testing.T) {
	parent := NewBytesZeroed(8)
	require.Panics(t, func() { Slice(parent, 0, 9) })
	require.Panics(t, func() { Slice(parent, -1, 4) })
	require.Panics(t, func() { Slice(parent, 5, 2) })
}

func TestSliceBytesInitTracksParent(t *testing.T) {
	parent := NewBytesZeroed(16)
	s := Slice(parent, 4, 12)

	require.Equal(t, 0, s.BytesInit())
	require.Equal(t, 8, s.BytesTotal())

	parent.SetInit(6) // only 2 bytes into the slice's region
	require.Equal(t, 2, s.BytesInit())

	parent.SetInit(16) // whole buffer, slice fully covered
	require.Equal(t, 8, s.BytesInit())
}

func TestSliceSetInitGrowsParent(t *testing.T) {
	parent := NewBytesZeroed(16)
	s := Slice(parent, 4, 12)

	s.SetInit(5) // 5 bytes into the slice -> parent initialized through byte 9
	require.Equal(t, 9, parent.BytesInit())
	require.Equal(t, 5, s.BytesInit())
}

func TestSliceBytesReturnsInitializedRegion(t *testing.T) {
	parent := NewBytes([]byte("0123456789"))
	s := Slice(parent, 2, 6)
	require.Equal(t, "2345", string(s.Bytes()))
}

func TestOwnedSliceImplementsStableBufferMut(t *testing.T) {
	var _ StableBuffer = OwnedSlice{}
	var _ StableBufferMut = OwnedSlice{}
}

func TestSliceIntoInnerRoundTripsToOriginalBuffer(t *testing.T) {
	parent := NewBytes([]byte("0123456789"))
	s := Slice(parent, 2, 6)

	require.Same(t, parent, s.IntoInner())
	require.Equal(t, "0123456789", string(parent.Slice()[:parent.BytesInit()]))
}

func TestSliceIntoInnerUnaffectedByRegion(t *testing.T) {
	parent := NewBytesZeroed(16)
	whole := Slice(parent, 0, 16)
	narrow := Slice(parent, 4, 12)

	require.Same(t, whole.IntoInner(), narrow.IntoInner())
}
