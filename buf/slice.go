package buf

// OwnedSlice is a view over a region of a larger StableBufferMut — the
// analogue of the source runtime's slice() combinator, used when an op
// should only see part of a pooled buffer (e.g. one chunk of a bufpool
// page) without copying.
type OwnedSlice struct {
	parent     *Bytes
	start, end int
}

// Slice returns an OwnedSlice over parent[start:end]. Panics if the range
// is out of bounds, matching Go's own slicing semantics.
func Slice(parent *Bytes, start, end int) OwnedSlice {
	if start < 0 || end > cap(parent.data) || start > end {
		panic("osiris: buf.Slice out of range")
	}
	return OwnedSlice{parent: parent, start: start, end: end}
}

func (s OwnedSlice) StablePtr() *byte {
	if s.start >= s.parent.init {
		return nil
	}
	return &s.parent.data[s.start]
}

func (s OwnedSlice) StableMutPtr() *byte {
	full := s.parent.data[:cap(s.parent.data)]
	return &full[s.start]
}

func (s OwnedSlice) BytesInit() int {
	if s.parent.init <= s.start {
		return 0
	}
	if s.parent.init >= s.end {
		return s.end - s.start
	}
	return s.parent.init - s.start
}

func (s OwnedSlice) BytesTotal() int { return s.end - s.start }

// SetInit records that n bytes starting at the slice's offset are now
// initialized in the parent buffer, used after a read-style op completes
// against this slice.
func (s OwnedSlice) SetInit(n int) {
	abs := s.start + n
	if abs > s.parent.init {
		s.parent.SetInit(abs)
	}
}

// Bytes returns the initialized portion of the slice.
func (s OwnedSlice) Bytes() []byte {
	n := s.BytesInit()
	return s.parent.data[s.start : s.start+n]
}

// IntoInner reclaims the whole buffer the slice was taken from, the Go
// rendering of the source runtime's `Slice::into_inner` (see
// original_source/tests/io_buf.rs's `slice.into_inner() == ARRAY`):
// narrowing a buffer to one region is a view, not a split, so the parent is
// handed back exactly as it was, unaffected by start/end. This is what lets
// a pooled buffer sliced for one op (internal/bufpool, e.g.) be returned to
// its pool once the op completes instead of being stranded inside the view.
func (s OwnedSlice) IntoInner() *Bytes {
	return s.parent
}

var (
	_ StableBuffer    = OwnedSlice{}
	_ StableBufferMut = OwnedSlice{}
)
