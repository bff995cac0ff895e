//go:build windows

package daemon

import "syscall"

// detachedProcAttr detaches the spawned daemon from the client's
// console.
func detachedProcAttr() *syscall.SysProcAttr {
	const createNewProcessGroup = 0x00000200
	const detachedProcess = 0x00000008
	return &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup | detachedProcess,
	}
}
