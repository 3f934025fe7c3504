//go:build unix

package localexecutor

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the script in its own group so Shutdown can reach its
// children too.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
