//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureProcess places a non-interactive child in its own process group
// so a timeout kills everything it spawned, not just the interpreter.
//
// Interactive children stay in the terminal's foreground group: a
// background group reading the terminal would be stopped by SIGTTIN.
func configureProcess(cmd *exec.Cmd, interactive bool) {
	if interactive {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
