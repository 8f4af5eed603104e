//go:build windows

package runner

import "os/exec"

// configureProcess keeps exec's default cancellation on Windows, which
// terminates the interpreter process.
func configureProcess(cmd *exec.Cmd, interactive bool) {}
