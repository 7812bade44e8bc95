package shell

import "fmt"

// ExitError carries the process exit code the application requested.
type ExitError struct {
	ExitCode int
}

func NewExitError(exitCode int) *ExitError {
	return &ExitError{ExitCode: exitCode}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("shell exited with %d", e.ExitCode)
}
