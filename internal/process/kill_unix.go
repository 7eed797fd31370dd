//go:build !windows

// Package process provides best-effort termination of external toolchain
// processes together with their children.
package process

import "syscall"

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID). The compiler driver starts the
// engine in its own group, so a hung compiler dies with every helper it
// spawned.
func KillProcessGroup(pid int) {
	// Best-effort cleanup; os/exec falls back to killing the leader.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
