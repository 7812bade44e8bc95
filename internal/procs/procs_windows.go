//go:build windows

package procs

import "syscall"

const (
	stillActive                    = 259
	processQueryLimitedInformation = 0x1000
)

// Probe reports the liveness of pid by querying its exit code through a
// limited-rights process handle.
func Probe(pid int) Status {
	if pid <= 0 {
		return Dead
	}

	handle, err := syscall.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err == nil {
		defer syscall.CloseHandle(handle)

		var exitCode uint32
		if err := syscall.GetExitCodeProcess(handle, &exitCode); err != nil {
			return Unknown
		}

		if exitCode == stillActive {
			return Alive
		}

		return Dead
	}

	if errno, ok := err.(syscall.Errno); ok {
		switch errno {
		case syscall.ERROR_INVALID_PARAMETER:
			// OpenProcess rejects pids that do not exist
			return Dead
		case syscall.ERROR_ACCESS_DENIED:
			return Unknown
		}
	}

	return Unknown
}
