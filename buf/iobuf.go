// Package buf defines the completion-safe buffer ownership contract that
// lets a buffer be handed to the kernel for an in-flight io_uring operation
// and survive until that operation completes, even if the Go code that
// submitted it stops polling (gets cancelled, panics, or times out) before
// the kernel replies. This is the hardest property carried over from the
// source runtime's buf::IoBuf/IoBufMut traits, which rely on Rust's
// ownership model (the buffer is moved into the kernel-visible future and
// only moved back out on completion) to make a stale pointer unreachable.
// Go has no move semantics, so the contract here is enforced by convention:
// a StableBuffer's backing memory must not be reallocated or shrunk for as
// long as any in-flight op references it, which in practice means "don't
// append to a []byte you've submitted" and "don't let the reactor's
// resource bundle (see package reactor) drop its reference before the
// completion arrives."
package buf

// StableBuffer is satisfied by any read-only buffer whose backing memory
// address is stable for the lifetime of an in-flight operation — the
// analogue of the source runtime's IoBuf trait, used for write-style ops
// (write_at, send).
type StableBuffer interface {
	// StablePtr returns a pointer to the first byte of initialized data.
	// The returned pointer must remain valid (not moved, not freed) until
	// the submitting op completes.
	StablePtr() *byte
	// BytesInit is the number of initialized, readable bytes starting at
	// StablePtr.
	BytesInit() int
}

// StableBufferMut extends StableBuffer for buffers the kernel writes into
// (read_at, recv) — the analogue of IoBufMut. BytesTotal is the buffer's
// full capacity; SetInit is called once the operation completes with the
// number of bytes the kernel actually wrote, so the caller's view updates
// without a copy.
type StableBufferMut interface {
	StableBuffer
	// StableMutPtr returns a pointer to the start of the buffer's full
	// capacity (which may exceed BytesInit), for the kernel to write into.
	StableMutPtr() *byte
	// BytesTotal is the buffer's total capacity in bytes.
	BytesTotal() int
	// SetInit updates the buffer's initialized-length bookkeeping after a
	// completion reports n bytes written.
	SetInit(n int)
}

// Bytes is the simplest StableBufferMut: a plain heap-allocated []byte. It
// is "stable" in the sense this contract needs only because Go slices
// backed by a single allocation don't move once created — callers must
// still avoid append()ing to a Bytes that has an in-flight op against it,
// since append may reallocate.
type Bytes struct {
	data []byte
	init int
}

// NewBytes wraps buf as a Bytes with its full length already initialized
// (suitable for write-style ops where the caller supplies complete data).
func NewBytes(buf []byte) *Bytes {
	return &Bytes{data: buf, init: len(buf)}
}

// NewBytesZeroed allocates a capacity-n Bytes with zero bytes initialized,
// suitable as a destination for a read-style op.
func NewBytesZeroed(n int) *Bytes {
	return &Bytes{data: make([]byte, n), init: 0}
}

func (b *Bytes) StablePtr() *byte {
	if len(b.data) == 0 {
		return nil
	}
	return &b.data[0]
}

func (b *Bytes) StableMutPtr() *byte {
	if cap(b.data) == 0 {
		return nil
	}
	full := b.data[:cap(b.data)]
	return &full[0]
}

func (b *Bytes) BytesInit() int  { return b.init }
func (b *Bytes) BytesTotal() int { return cap(b.data) }

func (b *Bytes) SetInit(n int) {
	if n < 0 || n > cap(b.data) {
		panic("osiris: buf.Bytes.SetInit out of range")
	}
	b.init = n
	b.data = b.data[:n]
}

// Slice returns the initialized portion as an ordinary []byte. Safe to
// call only once no op is in flight against this Bytes — reading while a
// read-style op is still writing into the same memory is a data race by
// construction, the same hazard the source runtime's IoBuf contract
// forbids.
func (b *Bytes) Slice() []byte { return b.data[:b.init] }

var (
	_ StableBuffer    = (*Bytes)(nil)
	_ StableBufferMut = (*Bytes)(nil)
)
