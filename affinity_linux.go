//go:build linux

package osiris

import "golang.org/x/sys/unix"

// pinCurrentThread pins the calling (already OS-thread-locked) goroutine to
// cpu via sched_setaffinity, the same call the teacher repo's ioLoop uses
// for per-queue CPU pinning.
func pinCurrentThread(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
