// Package reactor drives the completion-ring I/O backend: it turns a
// submitted operation into an op-id token, parks a future.Waker for that
// id, and wakes the corresponding task once the kernel (or, on the
// fallback backends, epoll/kqueue) reports completion. It mirrors the
// source runtime's reactor::Driver closely: one Reactor per OS thread, no
// cross-thread sharing, one HashMap-equivalent keyed by op id.
package reactor

import "errors"

// ErrRingFull is returned by Ring.Push when the submission queue has no
// room and the backend declines to block for space itself. Reactor retries
// after a SubmitAndYield in this case; in normal operation it should be
// rare since RingEntries is sized generously relative to task concurrency.
var ErrRingFull = errors.New("osiris: submission queue full")

// Opcode identifies the kind of operation an SQE carries. The set below
// covers every op package reactor's ops.go exposes; it intentionally does
// not try to mirror io_uring's full opcode space.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpRead
	OpWrite
	OpAccept
	OpConnect
	OpSend
	OpRecv
	OpOpenAt
	OpClose
	OpUnlinkAt
	OpMkdirAt
	OpStatx
	OpShutdown
	OpFsync
	OpTimeout
	OpCancel
)

// SQE is a backend-neutral submission entry. Each Ring implementation
// translates it into whatever its underlying syscall or library needs
// (giouring's Entry type on the io_uring backend, an epoll_ctl/kevent
// registration on the fallbacks). Addr/Addr2 carry raw pointers rather than
// Go slices because the memory they reference must stay valid without GC
// interference for the operation's lifetime — the buf package's
// StableBuffer contract is what makes that safe.
type SQE struct {
	Opcode   Opcode
	Fd       int32
	Addr     uintptr
	Addr2    uintptr
	Len      uint32
	Offset   int64
	UserData uint64
	// TimeoutNs is only meaningful for OpTimeout.
	TimeoutNs int64
	// CancelTarget is only meaningful for OpCancel: the UserData of the op
	// being cancelled.
	CancelTarget uint64
}

// CQE is a backend-neutral completion entry.
type CQE struct {
	UserData uint64
	// Res mirrors a raw syscall return: non-negative is a byte count or
	// success code, negative is -errno.
	Res int32
}

// Config configures a Ring backend.
type Config struct {
	Entries uint32
}

// Ring is the driver interface the Reactor pushes SQEs into and drains
// CQEs from. Push/SubmitAndYield/SubmitAndWait/DrainCompletions mirror the
// four operations the source runtime's Driver performs against
// io_uring::IoUring, and Close releases the backend; the epoll and kqueue backends implement the same
// interface over readiness notifications instead of completions, so
// Reactor never has to know which backend it's driving.
type Ring interface {
	// Push enqueues entry for submission, returning ErrRingFull if there
	// is no room. The caller is expected to have already set
	// entry.UserData to a unique op id.
	Push(entry SQE) error
	// SubmitAndYield flushes queued entries to the kernel without
	// blocking for completions.
	SubmitAndYield() error
	// SubmitAndWait flushes queued entries and blocks until at least one
	// completion (or the reactor's next timer) is ready.
	SubmitAndWait() error
	// DrainCompletions returns and clears all completions ready since the
	// last call.
	DrainCompletions() []CQE
	// Close releases the ring's kernel resources.
	Close() error
}
