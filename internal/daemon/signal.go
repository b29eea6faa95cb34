package daemon

import (
	"os"
	"syscall"
)

// signalFromName maps a protocol-level signal name to an os.Signal.
// Unknown or empty names default to SIGTERM.
func signalFromName(name string) os.Signal {
	switch name {
	case "SIGKILL", "KILL":
		return syscall.SIGKILL
	case "SIGINT", "INT":
		return syscall.SIGINT
	case "SIGTERM", "TERM", "":
		return syscall.SIGTERM
	default:
		return syscall.SIGTERM
	}
}
