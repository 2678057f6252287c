//go:build linux

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollRing is the portable Linux fallback Ring, used when osiris-go is
// built without -tags giouring (or against a kernel too old for the ops
// this runtime needs). It follows the source runtime's nonblocking/poll
// driver design: a syscall is attempted immediately in nonblocking mode,
// and only parked behind epoll if it returns EAGAIN, rather than every op
// unconditionally waiting for a readiness notification first.
type epollRing struct {
	epfd int

	mu      sync.Mutex
	waiting map[uint64]pendingOp // keyed by op id (SQE.UserData)
	ready   []CQE
}

// NewEpollRing creates the epoll-backed fallback Ring.
func NewEpollRing(config Config) (Ring, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, NewErrnoError("epoll_create1", err)
	}
	return &epollRing{epfd: epfd, waiting: make(map[uint64]pendingOp)}, nil
}

func (r *epollRing) Push(entry SQE) error {
	if entry.Opcode == OpCancel {
		r.mu.Lock()
		delete(r.waiting, entry.CancelTarget)
		r.mu.Unlock()
		return nil
	}

	if entry.Opcode == OpTimeout {
		tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
		if err != nil {
			return NewErrnoError("timerfd_create", err)
		}
		spec := &unix.ItimerSpec{
			Value: unix.NsecToTimespec(entry.TimeoutNs),
		}
		if err := unix.TimerfdSettime(tfd, 0, spec, nil); err != nil {
			unix.Close(tfd)
			return NewErrnoError("timerfd_settime", err)
		}
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, tfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(tfd)}); err != nil {
			unix.Close(tfd)
			return NewErrnoError("epoll_ctl", err)
		}
		r.mu.Lock()
		r.waiting[entry.UserData] = pendingOp{entry: entry, timer: tfd}
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

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(entry.Fd), &unix.EpollEvent{Events: event | unix.EPOLLONESHOT, Fd: entry.Fd}); err != nil {
		return NewErrnoError("epoll_ctl", err)
	}
	r.mu.Lock()
	r.waiting[entry.UserData] = pendingOp{entry: entry}
	r.mu.Unlock()
	return nil
}

func (r *epollRing) poll(timeoutMs int) error {
	var events [64]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return NewErrnoError("epoll_wait", err)
	}
	for i := 0; i < n; i++ {
		fd := events[i].Fd
		r.mu.Lock()
		for id, pop := range r.waiting {
			if pop.timer != 0 && int32(pop.timer) == fd {
				unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, pop.timer, nil)
				unix.Close(pop.timer)
				delete(r.waiting, id)
				r.ready = append(r.ready, CQE{UserData: id, Res: 0})
				continue
			}
			if pop.timer == 0 && pop.entry.Fd == fd {
				res, resolved, _ := attempt(pop.entry)
				if resolved {
					unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
					delete(r.waiting, id)
					r.ready = append(r.ready, CQE{UserData: id, Res: res})
				}
			}
		}
		r.mu.Unlock()
	}
	return nil
}

func (r *epollRing) SubmitAndYield() error { return r.poll(0) }
func (r *epollRing) SubmitAndWait() error  { return r.poll(-1) }

func (r *epollRing) DrainCompletions() []CQE {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ready
	r.ready = nil
	return out
}

func (r *epollRing) Close() error {
	return unix.Close(r.epfd)
}

var _ Ring = (*epollRing)(nil)
