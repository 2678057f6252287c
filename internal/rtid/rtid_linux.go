//go:build linux

// Package rtid identifies the calling OS thread, standing in for the
// thread-locals the source runtime uses to track "the current runtime" and
// "the current task". Go has no stable, portable thread-id primitive and no
// true thread-locals, but golang.org/x/sys/unix already exposes the Linux
// gettid(2) syscall, and the teacher repo already pins goroutines to OS
// threads with runtime.LockOSThread for exactly the affinity reasons this
// runtime cares about (see internal/queue/runner.go's CPU-affinity setup).
// block_on does the same pinning; Current is then stable for the lifetime
// of that call.
package rtid

import "golang.org/x/sys/unix"

// Current returns an identifier stable for as long as the calling goroutine
// stays locked to its OS thread (see runtime.LockOSThread).
func Current() int {
	return unix.Gettid()
}
