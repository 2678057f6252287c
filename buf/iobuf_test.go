package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBytesFullyInitialized(t *testing.T) {
	b := NewBytes([]byte("hello"))
	require.Equal(t, 5, b.BytesInit())
	require.Equal(t, 5, b.BytesTotal())
	require.Equal(t, "hello", string(b.Slice()))
}

func TestNewBytesZeroedStartsEmpty(t *testing.T) {
	b := NewBytesZeroed(16)
	require.Equal(t, 0, b.BytesInit())
	require.Equal(t, 16, b.BytesTotal())
	require.Empty(t, b.Slice())
}

func TestBytesSetInit(t *testing.T) {
	b := NewBytesZeroed(8)
	copy(unsafeFull(b), []byte("abcd"))
	b.SetInit(4)
	require.Equal(t, "abcd", string(b.Slice()))
	require.Equal(t, 4, b.BytesInit())
}

func TestBytesSetInitOutOfRangePanics(t *testing.T) {
	b := NewBytesZeroed(4)
	require.Panics(t, func() { b.SetInit(5) })
	require.Panics(t, func() { b.SetInit(-1) })
}

func TestBytesStablePtrEmpty(t *testing.T) {
	b := NewBytesZeroed(0)
	require.Nil(t, b.StablePtr())
}

func TestBytesImplementsStableBufferMut(t *testing.T) {
	var _ StableBuffer = (*Bytes)(nil)
	var _ StableBufferMut = (*Bytes)(nil)
}

// unsafeFull exposes the full backing array of a Bytes for tests that need
// to populate it before calling SetInit, mirroring what a real read op's
// kernel write into StableMutPtr would do.
func unsafeFull(b *Bytes) []byte {
	return b.data[:cap(b.data)]
}
