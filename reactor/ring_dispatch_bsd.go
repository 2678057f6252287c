//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import "github.com/ehrlich-b/osiris-go/internal/rlog"

// NewRing builds the kqueue-backed Ring, the only backend available on
// BSD/Darwin (io_uring is Linux-only).
func NewRing(config Config, logger *rlog.Logger) (Ring, error) {
	return NewKqueueRing(config)
}
