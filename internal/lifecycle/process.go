package lifecycle

import (
	"os"
	"syscall"
	"time"

	"github.com/kildhq/kild/internal/kilderr"
)

// IsProcessAlive checks whether pid still exists, grounded on the
// teacher's IsProcessAlive in internal/engine/state.go (signal 0 probe).
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// KillWithGrace sends SIGTERM to pid, then escalates to SIGKILL if the
// process is still alive after grace (spec.md §4.7 stop()).
func KillWithGrace(pid int, grace time.Duration) error {
	if !IsProcessAlive(pid) {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return kilderr.ProcessKillFailed("SIGTERM to pid %d", pid).Wrap(err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsProcessAlive(pid) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	if !IsProcessAlive(pid) {
		return nil
	}
	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return kilderr.ProcessKillFailed("SIGKILL to pid %d", pid).Wrap(err)
	}
	return nil
}
