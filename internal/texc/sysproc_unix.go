//go:build !windows

package texc

import "syscall"

// sysProcAttr puts the engine in its own process group so
// KillProcessGroup can reach every child.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
