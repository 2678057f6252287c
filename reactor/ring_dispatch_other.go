//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package reactor

import (
	"fmt"

	"github.com/ehrlich-b/osiris-go/internal/rlog"
)

// NewRing has no backend on platforms without io_uring, epoll, or kqueue
// (Windows, plan9, wasm). osiris-go's reactor is unix-only.
func NewRing(config Config, logger *rlog.Logger) (Ring, error) {
	return nil, fmt.Errorf("osiris: no reactor backend available on this platform")
}
