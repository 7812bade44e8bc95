//go:build windows

package pool

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no graceful termination signal, so both Terminate and
// Kill end the process outright.
func (p *Proc) sendSignal(bool) error {
	proc, err := os.FindProcess(p.pid)
	if err != nil {
		return nil
	}

	err = proc.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

func initCmd(*exec.Cmd) {}
