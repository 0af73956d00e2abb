package proc

import (
	"fmt"
	"os"
	"syscall"

	gops "github.com/shirou/gopsutil/v4/process"
)

// PIDAlive checks whether a process with the given PID is still running.
// It asks gopsutil first (which reads /proc on Linux) and falls back to a
// kill(pid, 0) check so a partially torn-down /proc entry cannot report a
// live process as gone mid-teardown.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	if ok, err := gops.PidExists(int32(pid)); err == nil {
		return ok
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// PIDStatus returns a human-readable scheduler state for the PID
// (running, sleep, zombie, ...). Used by the debug CLI's status output.
func PIDStatus(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid: %d", pid)
	}
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("pid %d: %w", pid, err)
	}
	statuses, err := p.Status()
	if err != nil {
		return "", fmt.Errorf("status of pid %d: %w", pid, err)
	}
	if len(statuses) == 0 {
		return "unknown", nil
	}
	return statuses[0], nil
}
