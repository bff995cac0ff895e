//go:build !windows

package daemon

import "syscall"

// detachedProcAttr detaches the spawned daemon from the client's
// session, so it survives the CLI process and its terminal.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
