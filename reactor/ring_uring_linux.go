//go:build linux && giouring

package reactor

import (
	"fmt"

	"github.com/pawelgaczynski/giouring"
)

// uringRing is the real io_uring-backed Ring, built only when compiling
// with -tags giouring (see ring_uring_stub.go for the default build). It
// follows the teacher repo's own split of a "real" backend behind a build
// tag and a stub returning an error otherwise.
type uringRing struct {
	ring *giouring.Ring
}

// NewUringBackedRing creates a Ring backed by a real io_uring instance with
// the requested submission queue depth.
func NewUringBackedRing(config Config) (Ring, error) {
	entries := config.Entries
	if entries == 0 {
		entries = 256
	}
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("osiris: io_uring_setup failed: %w", err)
	}
	return &uringRing{ring: ring}, nil
}

func (r *uringRing) Push(entry SQE) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	switch entry.Opcode {
	case OpRead:
		sqe.PrepareRead(entry.Fd, entry.Addr, entry.Len, uint64(entry.Offset))
	case OpWrite:
		sqe.PrepareWrite(entry.Fd, entry.Addr, entry.Len, uint64(entry.Offset))
	case OpAccept:
		sqe.PrepareAccept(entry.Fd, 0, 0, 0)
	case OpConnect:
		sqe.PrepareConnect(entry.Fd, entry.Addr, uint64(entry.Len))
	case OpSend:
		sqe.PrepareSend(entry.Fd, entry.Addr, uint32(entry.Len), 0)
	case OpRecv:
		sqe.PrepareRecv(entry.Fd, entry.Addr, uint32(entry.Len), 0)
	case OpOpenAt:
		sqe.PrepareOpenat(entry.Fd, entry.Addr, uint32(entry.Offset), 0)
	case OpClose:
		sqe.PrepareClose(entry.Fd)
	case OpUnlinkAt:
		sqe.PrepareUnlinkat(entry.Fd, entry.Addr, 0)
	case OpMkdirAt:
		sqe.PrepareMkdirat(entry.Fd, entry.Addr, uint32(entry.Offset))
	case OpStatx:
		sqe.PrepareStatx(entry.Fd, entry.Addr, 0, 0x7ff, entry.Addr2)
	case OpShutdown:
		sqe.PrepareShutdown(entry.Fd, int(entry.Offset))
	case OpFsync:
		sqe.PrepareFsync(entry.Fd, 0)
	case OpTimeout:
		ts := giouring.NewTimespec(entry.TimeoutNs)
		sqe.PrepareTimeout(ts, 0, 0)
	case OpCancel:
		sqe.PrepareCancel64(entry.CancelTarget, 0)
	case OpNop:
		sqe.PrepareNop()
	}
	sqe.UserData = entry.UserData
	return nil
}

func (r *uringRing) SubmitAndYield() error {
	_, err := r.ring.Submit()
	return err
}

func (r *uringRing) SubmitAndWait() error {
	_, err := r.ring.SubmitAndWait(1)
	return err
}

func (r *uringRing) DrainCompletions() []CQE {
	var out []CQE
	for {
		cqe, err := r.ring.PeekCQE()
		if err != nil || cqe == nil {
			break
		}
		out = append(out, CQE{UserData: cqe.UserData, Res: cqe.Res})
		r.ring.CQESeen(1)
	}
	return out
}

func (r *uringRing) Close() error {
	r.ring.QueueExit()
	return nil
}

var _ Ring = (*uringRing)(nil)
