//go:build windows

package infrastructure

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup detaches the child from the console's Ctrl+C group
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminateProcess kills the process; Windows has no SIGTERM for console children
func terminateProcess(p *os.Process) error {
	return p.Kill()
}
