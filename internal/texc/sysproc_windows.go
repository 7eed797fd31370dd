//go:build windows

package texc

import "syscall"

// sysProcAttr is a no-op on Windows; KillProcessGroup uses taskkill's
// tree kill instead.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
