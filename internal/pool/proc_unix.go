//go:build !windows

package pool

import (
	"errors"
	"os/exec"
	"syscall"
)

func (p *Proc) sendSignal(force bool) error {
	signal := syscall.SIGTERM
	if force {
		signal = syscall.SIGKILL
	}

	var err error
	if pgid, pgidErr := syscall.Getpgid(p.pid); pgidErr == nil {
		// Negative pid sends signal to all in process group
		err = syscall.Kill(-pgid, signal)
	} else {
		err = syscall.Kill(p.pid, signal)
	}

	if errors.Is(err, syscall.ESRCH) {
		// process already gone
		return nil
	}

	return err
}

func initCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
