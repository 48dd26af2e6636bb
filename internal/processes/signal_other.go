//go:build !unix

package processes

import (
	"os"
	"syscall"
)

// SignalTree kills pid and the given descendants; process groups and
// arbitrary signals are unavailable here.
func SignalTree(pid int, descendants []int, _ syscall.Signal) error {
	for _, p := range append([]int{pid}, descendants...) {
		if proc, err := os.FindProcess(p); err == nil {
			_ = proc.Kill()
		}
	}
	return nil
}

// SignalGroup is a no-op without process groups.
func SignalGroup(int, syscall.Signal) error { return nil }

// Alive reports whether pid can still be found.
func Alive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}

// SignalName describes sig.
func SignalName(sig syscall.Signal) string {
	return sig.String()
}
