// Package rtime provides time-related combinators built on the reactor's
// own timeout op rather than a separate Go timer — sleep and timeout both
// ride the same completion-ring wakeup path as I/O, the way the source
// runtime's time module is just another reactor client.
package rtime

import (
	"time"

	"github.com/ehrlich-b/osiris-go/future"
	"github.com/ehrlich-b/osiris-go/reactor"
)

// sleepFuture adapts reactor.Timeout's SimpleResult into struct{} while
// keeping Detach visible, so Timeout (see timeout.go) can abandon a losing
// Sleep branch the same way it abandons a losing arbitrary future.
type sleepFuture struct {
	inner *reactor.OpFuture[struct{}, reactor.SimpleResult]
}

var _ future.Future[struct{}] = (*sleepFuture)(nil)
var _ future.Detachable = (*sleepFuture)(nil)

func (s *sleepFuture) Poll(cx *future.Context) (struct{}, bool) {
	_, done := s.inner.Poll(cx)
	return struct{}{}, done
}

func (s *sleepFuture) Detach() { s.inner.Detach() }

// Sleep resolves once roughly d has elapsed.
func Sleep(r *reactor.Reactor, d time.Duration) *sleepFuture {
	return &sleepFuture{inner: reactor.Timeout(r, d.Nanoseconds())}
}
