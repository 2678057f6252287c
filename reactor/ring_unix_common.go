//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pendingOp is a syscall-backed op parked behind a readiness notification
// (epoll on Linux, kqueue on BSD/Darwin) after its first nonblocking
// attempt returned EAGAIN.
type pendingOp struct {
	entry SQE
	timer int // timerfd, Linux-only; unused (always 0) on the kqueue ring
}

// NewErrnoError wraps a unix syscall error as a plain error carrying the
// failed op name, used by both fallback rings when a ring-management
// syscall itself (not the submitted op) fails.
func NewErrnoError(op string, err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return &ringError{op: op, errno: int(errno)}
	}
	return &ringError{op: op, errno: -1}
}

type ringError struct {
	op    string
	errno int
}

func (e *ringError) Error() string { return "osiris: " + e.op + " failed" }

// attempt performs entry's syscall once in nonblocking mode. It returns
// (res, true, _) if the syscall resolved, success or real error, or
// (0, false, wantEvent) if it returned EAGAIN/EWOULDBLOCK/EINPROGRESS and
// the caller should wait for wantEvent (an EPOLLIN/EPOLLOUT-style mask,
// translated to the right kqueue filter by each ring) before retrying.
func attempt(entry SQE) (res int32, resolved bool, wantEvent uint32) {
	switch entry.Opcode {
	case OpRead:
		b := unsafe.Slice((*byte)(unsafe.Pointer(entry.Addr)), entry.Len)
		n, err := unix.Pread(int(entry.Fd), b, entry.Offset)
		return resolve(n, err, unix.EPOLLIN)
	case OpWrite:
		b := unsafe.Slice((*byte)(unsafe.Pointer(entry.Addr)), entry.Len)
		n, err := unix.Pwrite(int(entry.Fd), b, entry.Offset)
		return resolve(n, err, unix.EPOLLOUT)
	case OpSend:
		b := unsafe.Slice((*byte)(unsafe.Pointer(entry.Addr)), entry.Len)
		err := unix.Send(int(entry.Fd), b, 0)
		if err != nil {
			return resolve(0, err, unix.EPOLLOUT)
		}
		return int32(entry.Len), true, 0
	case OpRecv:
		b := unsafe.Slice((*byte)(unsafe.Pointer(entry.Addr)), entry.Len)
		n, _, err := unix.Recvfrom(int(entry.Fd), b, 0)
		return resolve(n, err, unix.EPOLLIN)
	case OpAccept:
		fd, _, err := unix.Accept(int(entry.Fd))
		if err != nil {
			return resolve(0, err, unix.EPOLLIN)
		}
		unix.SetNonblock(fd, true)
		return int32(fd), true, 0
	case OpConnect:
		b := unsafe.Slice((*byte)(unsafe.Pointer(entry.Addr)), entry.Len)
		sa := sockaddrFromBytes(b)
		err := unix.Connect(int(entry.Fd), sa)
		return resolve(0, err, unix.EPOLLOUT)
	case OpClose:
		err := unix.Close(int(entry.Fd))
		return resolve(0, err, 0)
	case OpShutdown:
		err := unix.Shutdown(int(entry.Fd), int(entry.Offset))
		return resolve(0, err, 0)
	case OpFsync:
		err := unix.Fsync(int(entry.Fd))
		return resolve(0, err, 0)
	case OpUnlinkAt:
		path := cstringAt(entry.Addr)
		err := unix.Unlinkat(int(entry.Fd), path, 0)
		return resolve(0, err, 0)
	case OpMkdirAt:
		path := cstringAt(entry.Addr)
		err := unix.Mkdirat(int(entry.Fd), path, uint32(entry.Offset))
		return resolve(0, err, 0)
	case OpOpenAt:
		path := cstringAt(entry.Addr)
		fd, err := unix.Openat(int(entry.Fd), path, int(entry.Offset), 0)
		if err != nil {
			return resolve(0, err, 0)
		}
		return int32(fd), true, 0
	case OpNop:
		return 0, true, 0
	default:
		return 0, true, 0
	}
}

func resolve(n int, err error, event uint32) (int32, bool, uint32) {
	if err == nil {
		return int32(n), true, 0
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINPROGRESS {
		return 0, false, event
	}
	if errno, ok := err.(unix.Errno); ok {
		return int32(-int(errno)), true, 0
	}
	return -int32(syscall.EIO), true, 0
}

func cstringAt(addr uintptr) string {
	n := 0
	for *(*byte)(unsafe.Pointer(addr + uintptr(n))) != 0 {
		n++
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	return string(b)
}

func sockaddrFromBytes(b []byte) unix.Sockaddr {
	// Minimal IPv4/IPv6 decode of the address bytes the caller of Connect
	// encoded: family occupies the first two bytes in native order, the
	// same layout as struct sockaddr.
	family := uint16(b[0]) | uint16(b[1])<<8
	switch family {
	case unix.AF_INET:
		var sa unix.SockaddrInet4
		sa.Port = int(b[2])<<8 | int(b[3])
		copy(sa.Addr[:], b[4:8])
		return &sa
	case unix.AF_INET6:
		var sa unix.SockaddrInet6
		sa.Port = int(b[2])<<8 | int(b[3])
		copy(sa.Addr[:], b[8:24])
		return &sa
	default:
		var sa unix.SockaddrInet4
		return &sa
	}
}
