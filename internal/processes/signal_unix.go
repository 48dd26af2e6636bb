//go:build unix

package processes

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalTree delivers sig to pid's process group, to pid itself, and to each
// pid in descendants. Processes that are already gone are not an error.
// Callers snapshot descendants before the root dies, since orphans are
// reparented and can no longer be found from pid.
func SignalTree(pid int, descendants []int, sig syscall.Signal) error {
	var errs []error

	groupErr := unix.Kill(-pid, sig)
	if groupErr != nil && !errors.Is(groupErr, unix.EPERM) && !errors.Is(groupErr, unix.ESRCH) {
		errs = append(errs, groupErr)
	}

	// The root may have left the group; signal it directly as well.
	procErr := unix.Kill(pid, sig)
	if procErr != nil && !errors.Is(procErr, unix.ESRCH) {
		errs = append(errs, procErr)
	}

	for _, child := range descendants {
		if err := unix.Kill(child, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SignalGroup delivers sig to every member of process group pgid. An empty or
// vanished group is not an error.
func SignalGroup(pgid int, sig syscall.Signal) error {
	err := unix.Kill(-pgid, sig)
	if err != nil && !errors.Is(err, unix.ESRCH) && !errors.Is(err, unix.EPERM) {
		return err
	}
	return nil
}

// Alive reports whether pid still exists and is not a zombie awaiting reaping.
func Alive(pid int) bool {
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	return !isZombie(pid)
}

// SignalName describes sig the way kill(1) would, e.g. "SIGKILL".
func SignalName(sig syscall.Signal) string {
	return unix.SignalName(sig)
}
