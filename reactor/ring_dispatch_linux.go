//go:build linux

package reactor

import "github.com/ehrlich-b/osiris-go/internal/rlog"

// NewRing builds the best available Ring for the current platform: the
// real io_uring backend when built with -tags giouring, falling back to
// the epoll-based driver otherwise (or if ring creation itself fails,
// e.g. a kernel too old for io_uring_setup).
func NewRing(config Config, logger *rlog.Logger) (Ring, error) {
	if ring, err := NewUringBackedRing(config); err == nil {
		return ring, nil
	} else if logger != nil {
		logger.Debug("io_uring backend unavailable, falling back to epoll", "error", err)
	}
	return NewEpollRing(config)
}
