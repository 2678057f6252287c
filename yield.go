package osiris

import "github.com/ehrlich-b/osiris-go/future"

// Yield returns a future that resolves on its second poll, immediately
// rescheduling itself via cx.Waker on its first. A task that polls Yield()
// from its own Poll voluntarily gives up its turn on the run queue without
// waiting on any I/O or timer — useful for breaking up a long CPU-bound task so it
// doesn't starve eventInterval's budget for the rest of the run queue.
func Yield() future.Future[struct{}] {
	polled := false
	return future.Func[struct{}](func(cx *future.Context) (struct{}, bool) {
		if !polled {
			polled = true
			cx.Waker.Wake()
			return struct{}{}, false
		}
		return struct{}{}, true
	})
}
