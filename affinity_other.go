//go:build !linux

package osiris

// pinCurrentThread has no portable CPU-affinity syscall outside Linux;
// BSD/Darwin builds run without pinning. CPUAffinity is still accepted in
// Config on these platforms, it is simply a no-op.
func pinCurrentThread(cpu int) error {
	return nil
}
