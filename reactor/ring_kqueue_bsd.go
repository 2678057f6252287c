//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueRing is the BSD/Darwin fallback Ring, the kqueue counterpart to
// ring_epoll_linux.go's epollRing: attempt the syscall directly in
// nonblocking mode, and only register kqueue interest on EAGAIN. osiris-go
// is Linux-first (io_uring is the whole point) but this keeps the reactor
// usable for development on macOS.
type kqueueRing struct {
	kq int

	mu      sync.Mutex
	waiting map[uint64]pendingOp
	ready   []CQE
}

// NewKqueueRing creates the kqueue-backed fallback Ring.
func NewKqueueRing(config Config) (Ring, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, NewErrnoError("kqueue", err)
	}
	return &kqueueRing{kq: kq, waiting: make(map[uint64]pendingOp)}, nil
}

func (r *kqueueRing) Push(entry SQE) error {
	if entry.Opcode == OpCancel {
		r.mu.Lock()
		delete(r.waiting, entry.CancelTarget)
		r.mu.Unlock()
		return nil
	}

	res, resolved, event := attempt(entry)
	if resolved {
		r.mu.Lock()
		r.ready = append(r.ready, CQE{UserData: entry.UserData, Res: res})
		r.mu.Unlock()
		return nil
	}

	filter := int16(unix.EVFILT_READ)
	if event == unix.EPOLLOUT {
		filter = unix.EVFILT_WRITE
	}
	kev := unix.Kevent_t{
		Ident:  uint64(entry.Fd),
		Filter: filter,
		Flags:  unix.EV_ADD | unix.EV_ONESHOT,
	}
	if _, err := unix.Kevent(r.kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		return NewErrnoError("kevent", err)
	}
	r.mu.Lock()
	r.waiting[entry.UserData] = pendingOp{entry: entry}
	r.mu.Unlock()
	return nil
}

func (r *kqueueRing) poll(timeout *unix.Timespec) error {
	events := make([]unix.Kevent_t, 64)
	n, err := unix.Kevent(r.kq, nil, events, timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return NewErrnoError("kevent", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		fd := int32(events[i].Ident)
		for id, pop := range r.waiting {
			if pop.entry.Fd != fd {
				continue
			}
			res, resolved, _ := attempt(pop.entry)
			if resolved {
				delete(r.waiting, id)
				r.ready = append(r.ready, CQE{UserData: id, Res: res})
			}
		}
	}
	return nil
}

func (r *kqueueRing) SubmitAndYield() error {
	return r.poll(&unix.Timespec{})
}

func (r *kqueueRing) SubmitAndWait() error {
	return r.poll(nil)
}

func (r *kqueueRing) DrainCompletions() []CQE {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ready
	r.ready = nil
	return out
}

func (r *kqueueRing) Close() error {
	return unix.Close(r.kq)
}

var _ Ring = (*kqueueRing)(nil)
