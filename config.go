package osiris

import (
	"runtime"

	"github.com/ehrlich-b/osiris-go/internal/rlog"
)

// Mode selects how the reactor waits for completions when the run queue is
// empty, mirroring the source runtime's notify-vs-polling driver split.
type Mode int

const (
	// ModeNotify blocks in the kernel (io_uring_enter with WAIT, or
	// epoll_wait/kevent on the fallback backends) until at least one
	// completion or timeout is ready. Lowest CPU usage; the default.
	ModeNotify Mode = iota
	// ModePolling busy-polls DrainCompletions between task-queue ticks.
	// Lower latency, burns a full core; intended for latency-sensitive
	// workloads running on a pinned CPU.
	ModePolling
)

// Config configures a single thread-per-core Runtime. One Config produces
// one Runtime bound to one reactor ring; a multi-core deployment builds one
// Config (sharing CPUAffinity across a set) per OS thread, the same shape
// as the teacher repo's per-queue queue.Config.
type Config struct {
	// RingEntries is the submission/completion queue depth requested from
	// the kernel. Rounded up to a power of two by the backend.
	RingEntries uint32

	// Mode selects the notify-vs-polling wait strategy. Defaults to
	// ModeNotify.
	Mode Mode

	// EventInterval bounds how many ready tasks RunTick polls before
	// yielding to drain reactor completions, preventing a hot task loop
	// from starving I/O. Mirrors tokio's and this runtime's
	// event_interval; default 61.
	EventInterval int

	// CPUAffinity pins the runtime's OS thread to the given CPU, or to
	// none if empty. Thread-per-core deployments set exactly one CPU per
	// Runtime.
	CPUAffinity []int

	// Logger receives runtime diagnostics. Defaults to rlog.Default().
	Logger *rlog.Logger

	// Observer receives optional metrics callbacks. May be left nil.
	Observer Observer
}

// DefaultConfig returns the Config used when a caller passes a zero-value
// or partially-filled Config to New/NewWithRing.
func DefaultConfig() Config {
	return Config{
		RingEntries:   256,
		Mode:          ModeNotify,
		EventInterval: 61,
		Logger:        rlog.Default(),
	}
}

// withDefaults fills the zero-valued fields of a user-supplied Config from
// DefaultConfig, the same defaulting-function shape the teacher uses for
// its uring.Config and queue.Config.
func withDefaults(c Config) Config {
	d := DefaultConfig()
	if c.RingEntries == 0 {
		c.RingEntries = d.RingEntries
	}
	if c.EventInterval == 0 {
		c.EventInterval = d.EventInterval
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// numCPU is a var, not a call to runtime.NumCPU(), purely so tests can
// override it without touching the host's actual core count.
var numCPU = runtime.NumCPU
