package reactor

import (
	"unsafe"

	"github.com/ehrlich-b/osiris-go/buf"
)

func ptrOf(b *byte) uintptr {
	if b == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(b))
}

// ReadResult is ReadAt/Recv's resolved value: the buffer (with SetInit
// already applied on success), the byte count, and a nonzero Errno on
// failure.
type ReadResult[B buf.StableBufferMut] struct {
	Buf   B
	N     int
	Errno int
}

// ReadAt reads into b at pos, returning the future that resolves to the
// byte count read and hands the buffer back with SetInit already applied —
// the Go analogue of reactor::iouring::op::read_at. The returned future
// also implements future.Detachable, so a combinator abandoning this op
// (rtime.Timeout's losing branch) keeps b pinned until the real completion
// arrives instead of risking the kernel writing into collected memory.
func ReadAt[B buf.StableBufferMut](r *Reactor, fd int32, b B, pos int64) *OpFuture[B, ReadResult[B]] {
	entry := SQE{Opcode: OpRead, Fd: fd, Addr: ptrOf(b.StableMutPtr()), Len: uint32(b.BytesTotal()), Offset: pos}
	return NewOpFuture(Submit(r, entry, b), func(res SubmitResult[B]) ReadResult[B] {
		if res.CQE.Res < 0 {
			return ReadResult[B]{Buf: res.Resources, Errno: int(-res.CQE.Res)}
		}
		n := int(res.CQE.Res)
		res.Resources.SetInit(n)
		return ReadResult[B]{Buf: res.Resources, N: n}
	})
}

// WriteResult is WriteAt/Send's resolved value.
type WriteResult[B buf.StableBuffer] struct {
	Buf   B
	N     int
	Errno int
}

// WriteAt writes b's initialized bytes to fd at pos.
func WriteAt[B buf.StableBuffer](r *Reactor, fd int32, b B, pos int64) *OpFuture[B, WriteResult[B]] {
	entry := SQE{Opcode: OpWrite, Fd: fd, Addr: ptrOf(b.StablePtr()), Len: uint32(b.BytesInit()), Offset: pos}
	return NewOpFuture(Submit(r, entry, b), func(res SubmitResult[B]) WriteResult[B] {
		if res.CQE.Res < 0 {
			return WriteResult[B]{Buf: res.Resources, Errno: int(-res.CQE.Res)}
		}
		return WriteResult[B]{Buf: res.Resources, N: int(res.CQE.Res)}
	})
}

// Send writes b's initialized bytes to a connected socket fd.
func Send[B buf.StableBuffer](r *Reactor, fd int32, b B) *OpFuture[B, WriteResult[B]] {
	entry := SQE{Opcode: OpSend, Fd: fd, Addr: ptrOf(b.StablePtr()), Len: uint32(b.BytesInit())}
	return NewOpFuture(Submit(r, entry, b), func(res SubmitResult[B]) WriteResult[B] {
		if res.CQE.Res < 0 {
			return WriteResult[B]{Buf: res.Resources, Errno: int(-res.CQE.Res)}
		}
		return WriteResult[B]{Buf: res.Resources, N: int(res.CQE.Res)}
	})
}

// Recv reads from a connected socket fd into b.
func Recv[B buf.StableBufferMut](r *Reactor, fd int32, b B) *OpFuture[B, ReadResult[B]] {
	entry := SQE{Opcode: OpRecv, Fd: fd, Addr: ptrOf(b.StableMutPtr()), Len: uint32(b.BytesTotal())}
	return NewOpFuture(Submit(r, entry, b), func(res SubmitResult[B]) ReadResult[B] {
		if res.CQE.Res < 0 {
			return ReadResult[B]{Buf: res.Resources, Errno: int(-res.CQE.Res)}
		}
		n := int(res.CQE.Res)
		res.Resources.SetInit(n)
		return ReadResult[B]{Buf: res.Resources, N: n}
	})
}

// AcceptResult is Accept's resolved value: the new connection's fd, or a
// nonzero Errno on failure.
type AcceptResult struct {
	Fd    int32
	Errno int
}

// Accept waits for and accepts one connection on listening fd.
func Accept(r *Reactor, fd int32) *OpFuture[struct{}, AcceptResult] {
	entry := SQE{Opcode: OpAccept, Fd: fd}
	return NewOpFuture(Submit(r, entry, struct{}{}), func(res SubmitResult[struct{}]) AcceptResult {
		if res.CQE.Res < 0 {
			return AcceptResult{Errno: int(-res.CQE.Res)}
		}
		return AcceptResult{Fd: res.CQE.Res}
	})
}

// ConnectResult is Connect's resolved value.
type ConnectResult struct {
	Errno int
}

// Connect initiates a connect(2) on fd toward the address already encoded
// by the caller into addr's backing storage (a sockaddr bundle, pinned for
// the duration of the op exactly like the source runtime's Box<sockaddr>).
func Connect(r *Reactor, fd int32, addr buf.StableBuffer) *OpFuture[buf.StableBuffer, ConnectResult] {
	entry := SQE{Opcode: OpConnect, Fd: fd, Addr: ptrOf(addr.StablePtr()), Len: uint32(addr.BytesInit())}
	return NewOpFuture(Submit(r, entry, addr), func(res SubmitResult[buf.StableBuffer]) ConnectResult {
		if res.CQE.Res < 0 {
			return ConnectResult{Errno: int(-res.CQE.Res)}
		}
		return ConnectResult{}
	})
}

// SimpleResult is the resolved value of ops that produce only a return
// code: Close, Shutdown, UnlinkAt, MkdirAt, Fsync, Timeout.
type SimpleResult struct {
	Errno int
}

func simpleOp(r *Reactor, entry SQE) *OpFuture[struct{}, SimpleResult] {
	return NewOpFuture(Submit(r, entry, struct{}{}), func(res SubmitResult[struct{}]) SimpleResult {
		if res.CQE.Res < 0 {
			return SimpleResult{Errno: int(-res.CQE.Res)}
		}
		return SimpleResult{}
	})
}

// Close closes fd.
func Close(r *Reactor, fd int32) *OpFuture[struct{}, SimpleResult] {
	return simpleOp(r, SQE{Opcode: OpClose, Fd: fd})
}

// Fsync flushes fd's data to stable storage.
func Fsync(r *Reactor, fd int32) *OpFuture[struct{}, SimpleResult] {
	return simpleOp(r, SQE{Opcode: OpFsync, Fd: fd})
}

// ShutdownHow mirrors net.Shutdown's direction argument.
type ShutdownHow int32

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

// Shutdown shuts down part or all of a full-duplex connection on fd.
func Shutdown(r *Reactor, fd int32, how ShutdownHow) *OpFuture[struct{}, SimpleResult] {
	return simpleOp(r, SQE{Opcode: OpShutdown, Fd: fd, Offset: int64(how)})
}

// OpenAtResult is OpenAt's resolved value.
type OpenAtResult struct {
	Fd    int32
	Errno int
}

// OpenAt opens path (already encoded into pathBuf, NUL-terminated) relative
// to dirFd.
func OpenAt(r *Reactor, dirFd int32, pathBuf buf.StableBuffer, flags uint32) *OpFuture[buf.StableBuffer, OpenAtResult] {
	entry := SQE{Opcode: OpOpenAt, Fd: dirFd, Addr: ptrOf(pathBuf.StablePtr()), Offset: int64(flags)}
	return NewOpFuture(Submit(r, entry, pathBuf), func(res SubmitResult[buf.StableBuffer]) OpenAtResult {
		if res.CQE.Res < 0 {
			return OpenAtResult{Errno: int(-res.CQE.Res)}
		}
		return OpenAtResult{Fd: res.CQE.Res}
	})
}

// UnlinkAt removes the directory entry named by pathBuf relative to dirFd.
func UnlinkAt(r *Reactor, dirFd int32, pathBuf buf.StableBuffer) *OpFuture[buf.StableBuffer, SimpleResult] {
	entry := SQE{Opcode: OpUnlinkAt, Fd: dirFd, Addr: ptrOf(pathBuf.StablePtr())}
	return NewOpFuture(Submit(r, entry, pathBuf), func(res SubmitResult[buf.StableBuffer]) SimpleResult {
		if res.CQE.Res < 0 {
			return SimpleResult{Errno: int(-res.CQE.Res)}
		}
		return SimpleResult{}
	})
}

// MkdirAt creates a directory named by pathBuf relative to dirFd.
func MkdirAt(r *Reactor, dirFd int32, pathBuf buf.StableBuffer, mode uint32) *OpFuture[buf.StableBuffer, SimpleResult] {
	entry := SQE{Opcode: OpMkdirAt, Fd: dirFd, Addr: ptrOf(pathBuf.StablePtr()), Offset: int64(mode)}
	return NewOpFuture(Submit(r, entry, pathBuf), func(res SubmitResult[buf.StableBuffer]) SimpleResult {
		if res.CQE.Res < 0 {
			return SimpleResult{Errno: int(-res.CQE.Res)}
		}
		return SimpleResult{}
	})
}

// Timeout resolves after roughly durationNs nanoseconds, backed by the
// ring's own timeout SQE rather than a Go timer — so it participates in
// the same completion-ring wakeup path as every other op instead of
// needing a separate timer wheel. See package rtime for the public,
// time.Duration-typed wrappers built on this.
func Timeout(r *Reactor, durationNs int64) *OpFuture[struct{}, SimpleResult] {
	return simpleOp(r, SQE{Opcode: OpTimeout, TimeoutNs: durationNs})
}

// statxBundle pins both the path buffer and the stat destination buffer
// for the duration of a Statx op.
type statxBundle struct {
	path buf.StableBuffer
	stat buf.StableBufferMut
}

// StatxResult is Statx's resolved value: the raw stat buffer the kernel
// wrote into, or a nonzero Errno on failure.
type StatxResult struct {
	Buf   buf.StableBufferMut
	Errno int
}

// Statx stats pathBuf (or fd itself if pathBuf is nil) into statBuf.
func Statx(r *Reactor, fd int32, pathBuf buf.StableBuffer, statBuf buf.StableBufferMut) *OpFuture[statxBundle, StatxResult] {
	entry := SQE{Opcode: OpStatx, Fd: fd, Addr2: ptrOf(statBuf.StableMutPtr())}
	if pathBuf != nil {
		entry.Addr = ptrOf(pathBuf.StablePtr())
	}
	return NewOpFuture(Submit(r, entry, statxBundle{path: pathBuf, stat: statBuf}), func(res SubmitResult[statxBundle]) StatxResult {
		if res.CQE.Res < 0 {
			return StatxResult{Buf: res.Resources.stat, Errno: int(-res.CQE.Res)}
		}
		return StatxResult{Buf: res.Resources.stat}
	})
}
