//go:build !windows

package procs

import (
	"errors"
	"syscall"
)

// Probe reports the liveness of pid by sending it signal 0.
func Probe(pid int) Status {
	if pid <= 0 {
		return Dead
	}

	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return Alive
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ESRCH:
			// No such process
			return Dead
		case syscall.EPERM:
			// Process exists but is not ours to signal
			return Unknown
		}
	}

	return Unknown
}
