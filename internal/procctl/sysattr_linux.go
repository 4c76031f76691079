//go:build linux

package procctl

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Workers get their own process group so SIGKILL reaches grandchildren, and
// Pdeathsig as a second line of defense behind the in-worker watchdog.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return err
	}
	return nil
}
