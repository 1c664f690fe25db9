//go:build unix

package launcher

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts proc in its own process group, so cancelling it also stops the
// processes it started.
func setProcessGroup(proc *exec.Cmd) {
	proc.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	proc.Cancel = func() error {
		return syscall.Kill(-proc.Process.Pid, syscall.SIGKILL)
	}
}
