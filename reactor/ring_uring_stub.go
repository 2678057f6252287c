//go:build !(linux && giouring)

package reactor

import "fmt"

// NewUringBackedRing is available when built with -tags giouring on linux.
// Everywhere else, NewRing falls back to the epoll or kqueue backend (see
// ring_epoll_linux.go / ring_kqueue_bsd.go) and never calls this.
func NewUringBackedRing(config Config) (Ring, error) {
	return nil, fmt.Errorf("osiris: io_uring backend not enabled; build with -tags giouring on linux")
}
