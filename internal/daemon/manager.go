// Package daemon implements the Daemon Session Manager (C5), the IPC
// Server (C6, spec.md §4.6/§6), and the Reconciler (C8). It is the
// long-running process that owns every daemon-hosted PTY and serves
// the unix-socket protocol described in internal/protocol, grounded on
// the teacher's daemon-loop-with-signal-handling pattern in
// internal/cli/run.go generalized from "run one pipeline pass" to
// "serve IPC connections until shutdown".
package daemon

import (
	"sync"
	"time"

	"github.com/kildhq/kild/internal/broadcast"
	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/protocol"
	"github.com/kildhq/kild/internal/ptyengine"
)

// DaemonSession is one daemon-hosted PTY plus its fan-out and the set
// of clients currently attached.
type DaemonSession struct {
	ID        string // daemon_session_id
	LogicalID string // session_id (project/branch)
	Pty       *ptyengine.ManagedPty
	Fanout    *broadcast.Fanout

	mu       sync.Mutex
	attached map[string]bool
}

// Manager holds every daemon session (spec.md §4.5): `sessions` keyed
// by daemon_session_id, `by_logical_id` the reverse index.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*DaemonSession
	byLogicalID map[string]string

	nextID func() string
}

// Host is the subset of Manager the lifecycle engine depends on. The
// daemon process wires a real *Manager in; a CLI process instead wires
// an IPC-backed implementation (internal/ipcclient) that forwards each
// call to a running daemon over the unix socket, so lifecycle.Engine
// never has to know which process it's running in.
type Host interface {
	Open(opts OpenOptions) (string, error)
	Close(daemonSessionID, signal string) error
	Kill(daemonSessionID string) error
	IsAlive(daemonSessionID string) bool
	WaitReap(daemonSessionID string)
}

// NewManager creates an empty manager. idGen generates daemon_session_ids
// (injected so tests can use deterministic ids).
func NewManager(idGen func() string) *Manager {
	return &Manager{
		sessions:    make(map[string]*DaemonSession),
		byLogicalID: make(map[string]string),
		nextID:      idGen,
	}
}

// OpenOptions describes a new daemon-hosted PTY.
type OpenOptions struct {
	SessionID   string
	Command     string
	Cwd         string
	EnvOverlay  map[string]string
	Rows, Cols  uint16
}

// Open spawns a PTY via the PTY manager, indexes it both ways, and
// returns the new daemon_session_id.
func (m *Manager) Open(opts OpenOptions) (string, error) {
	daemonSessionID := m.nextID()

	ds := &DaemonSession{
		ID:        daemonSessionID,
		LogicalID: opts.SessionID,
		attached:  make(map[string]bool),
	}
	ds.Fanout = broadcast.NewFanout(func(clientID string) { ds.detachClient(clientID) })

	mp, err := ptyengine.Spawn(ptyengine.SpawnOptions{
		ID:          daemonSessionID,
		Command:     opts.Command,
		Dir:         opts.Cwd,
		EnvOverlay:  opts.EnvOverlay,
		InitialSize: ptyengine.Size{Rows: opts.Rows, Cols: opts.Cols},
		Handlers: ptyengine.Handlers{
			OnOutput: ds.Fanout.Publish,
			OnExit: func(ev ptyengine.ExitEvent) {
				ds.Fanout.PublishExit(broadcast.ExitInfo{ExitCode: ev.ExitCode, Signal: ev.Signal})
			},
		},
	})
	if err != nil {
		return "", err
	}
	ds.Pty = mp

	m.mu.Lock()
	m.sessions[daemonSessionID] = ds
	m.byLogicalID[opts.SessionID] = daemonSessionID
	m.mu.Unlock()

	return daemonSessionID, nil
}

// Get looks up a daemon session by its daemon_session_id.
func (m *Manager) Get(daemonSessionID string) (*DaemonSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.sessions[daemonSessionID]
	if !ok {
		return nil, kilderr.SessionNotFound(daemonSessionID)
	}
	return ds, nil
}

// GetByLogicalID resolves a project/branch session_id to its daemon session.
func (m *Manager) GetByLogicalID(sessionID string) (*DaemonSession, error) {
	m.mu.RLock()
	id, ok := m.byLogicalID[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, kilderr.SessionNotFound(sessionID)
	}
	return m.Get(id)
}

// AttachResult bundles the scrollback replay with the live subscriber,
// so the IPC handler can send the replay frame(s) before forwarding the
// subscriber's channel, preserving the atomic replay-then-live-stream
// ordering required by spec.md §6.5.
type AttachResult struct {
	Scrollback []byte
	Sub        *broadcast.Subscriber
}

// Attach registers clientID with daemonSessionID's fan-out and returns
// the scrollback snapshot to replay before streaming begins.
func (m *Manager) Attach(daemonSessionID, clientID string) (*AttachResult, error) {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return nil, err
	}
	// Snapshot and subscribe under the scrollback's own lock, paired
	// with ptyengine's readLoop taking that same lock around its
	// append+notify (Scrollback.WriteAndNotify). That makes "append
	// chunk, publish to current subscribers" and "snapshot buffer, add
	// subscriber" mutually exclusive: whichever runs first for a given
	// byte decides once, either it lands in snap or it arrives live to
	// sub, never both and never neither.
	var sub *broadcast.Subscriber
	snap := ds.Pty.Scrollback.SnapshotAndAttach(func() {
		sub = ds.Fanout.Attach(clientID)
	})

	ds.mu.Lock()
	ds.attached[clientID] = true
	ds.mu.Unlock()

	return &AttachResult{Scrollback: snap, Sub: sub}, nil
}

// Detach removes clientID from whichever session holds it.
func (m *Manager) Detach(clientID string) {
	m.mu.RLock()
	sessions := make([]*DaemonSession, 0, len(m.sessions))
	for _, ds := range m.sessions {
		sessions = append(sessions, ds)
	}
	m.mu.RUnlock()

	for _, ds := range sessions {
		ds.detachClient(clientID)
	}
}

func (ds *DaemonSession) detachClient(clientID string) {
	ds.mu.Lock()
	_, had := ds.attached[clientID]
	delete(ds.attached, clientID)
	ds.mu.Unlock()
	if had {
		ds.Fanout.Detach(clientID)
	}
}

// Send forwards bytes to the PTY's stdin.
func (m *Manager) Send(daemonSessionID string, data []byte) error {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return err
	}
	return ds.Pty.Write(data)
}

// Resize forwards a window-size change.
func (m *Manager) Resize(daemonSessionID string, rows, cols uint16) error {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return err
	}
	return ds.Pty.Resize(ptyengine.Size{Rows: rows, Cols: cols})
}

// Close signals the child; the exit watcher finalizes session state.
// Removal from the manager only happens on child exit or this explicit
// close (spec.md §4.5 invariant) — see Reap.
func (m *Manager) Close(daemonSessionID string, sig string) error {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return err
	}
	return ds.Pty.Close(signalFromName(sig))
}

// IsAlive reports whether daemonSessionID is still tracked by the
// manager (i.e. not yet reaped).
func (m *Manager) IsAlive(daemonSessionID string) bool {
	_, err := m.Get(daemonSessionID)
	return err == nil
}

// Kill sends SIGKILL directly to a session's PTY, bypassing Close's
// graceful-signal path. A no-op if the session is already gone.
func (m *Manager) Kill(daemonSessionID string) error {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return nil
	}
	return ds.Pty.Kill()
}

// Reap removes daemonSessionID from the manager once its child has
// exited. Safe to call repeatedly; a no-op if the PTY is still running
// or already reaped.
func (m *Manager) Reap(daemonSessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.sessions[daemonSessionID]
	if !ok {
		return
	}
	select {
	case <-ds.Pty.Done():
	default:
		return
	}
	delete(m.sessions, daemonSessionID)
	if m.byLogicalID[ds.LogicalID] == daemonSessionID {
		delete(m.byLogicalID, ds.LogicalID)
	}
}

// List summarizes every live daemon session for ListSessions replies.
func (m *Manager) List() []protocol.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]protocol.SessionInfo, 0, len(m.sessions))
	for _, ds := range m.sessions {
		ds.mu.Lock()
		attached := len(ds.attached)
		ds.mu.Unlock()

		status := "Active"
		if _, exited := ds.Pty.LastExit(); exited {
			status = "Exited"
		}
		out = append(out, protocol.SessionInfo{
			SessionID:       ds.LogicalID,
			DaemonSessionID: ds.ID,
			Status:          status,
			Attached:        attached,
		})
	}
	return out
}

// WaitReap blocks until daemonSessionID's child exits, then reaps it.
// The IPC server runs this in a goroutine per opened PTY so exited
// sessions don't linger in the manager forever once unattached.
func (m *Manager) WaitReap(daemonSessionID string) {
	ds, err := m.Get(daemonSessionID)
	if err != nil {
		return
	}
	<-ds.Pty.Done()
	time.Sleep(10 * time.Millisecond) // let PublishExit's final frame land first
	m.Reap(daemonSessionID)
}
