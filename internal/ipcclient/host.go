package ipcclient

import (
	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/protocol"
)

// DaemonHost adapts a Client into a daemon.Host, so lifecycle.Engine can
// drive a daemon running in a separate process exactly as it would an
// in-process *daemon.Manager. This is what the "kild" CLI binary wires
// in; cmd/kild-daemon wires in the real *daemon.Manager instead.
type DaemonHost struct {
	c *Client
}

// NewDaemonHost wraps an already-dialed client.
func NewDaemonHost(c *Client) *DaemonHost {
	return &DaemonHost{c: c}
}

// Open sends OpenPty and returns the daemon_session_id from the reply.
func (h *DaemonHost) Open(opts daemon.OpenOptions) (string, error) {
	reply, err := h.c.Request(protocol.ClientMessage{
		Type:      protocol.MsgOpenPty,
		SessionID: opts.SessionID,
		Command:   opts.Command,
		Cwd:       opts.Cwd,
		Env:       opts.EnvOverlay,
		Rows:      int(opts.Rows),
		Cols:      int(opts.Cols),
	})
	if err != nil {
		return "", err
	}
	return reply.DaemonSessionID, nil
}

// Close sends ClosePty with the given signal name.
func (h *DaemonHost) Close(daemonSessionID, signal string) error {
	_, err := h.c.Request(protocol.ClientMessage{
		Type:            protocol.MsgClosePty,
		DaemonSessionID: daemonSessionID,
		Signal:          signal,
	})
	return err
}

// Kill sends ClosePty with SIGKILL.
func (h *DaemonHost) Kill(daemonSessionID string) error {
	return h.Close(daemonSessionID, "SIGKILL")
}

// IsAlive checks ListSessions for daemonSessionID.
func (h *DaemonHost) IsAlive(daemonSessionID string) bool {
	reply, err := h.c.Request(protocol.ClientMessage{Type: protocol.MsgListSessions})
	if err != nil {
		return false
	}
	for _, s := range reply.List {
		if s.DaemonSessionID == daemonSessionID {
			return true
		}
	}
	return false
}

// WaitReap is a no-op: the remote daemon reaps its own exited sessions.
func (h *DaemonHost) WaitReap(daemonSessionID string) {}

var _ daemon.Host = (*DaemonHost)(nil)
