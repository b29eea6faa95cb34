// Package ptyengine is the PTY Manager (spec.md §4.3): spawns agent
// child processes behind a pseudo-terminal, keeps a scrollback ring per
// session, and notifies callers of output and exit so the broadcaster
// (internal/broadcast) can fan bytes out to attached clients. Grounded
// on the teacher's invokeAgent in internal/engine/engine.go, which opens
// a creack/pty pair around an exec.Cmd and copies ptmx output, treating
// syscall.EIO at process exit as expected rather than an error.
package ptyengine

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/kildhq/kild/internal/kilderr"
)

// Size is a terminal window size.
type Size struct {
	Rows, Cols uint16
}

// ExitEvent records how and when a child exited.
type ExitEvent struct {
	ExitCode int
	Signal   string
	At       time.Time
}

// Handlers are callbacks a ManagedPty reports to; registered at spawn
// time so the broadcaster can be wired without ptyengine importing it.
type Handlers struct {
	// OnOutput is called on every read-loop chunk, after it has already
	// been appended to scrollback.
	OnOutput func(data []byte)
	// OnExit is called exactly once, after the exit watcher observes the
	// child terminate.
	OnExit func(ev ExitEvent)
}

// ManagedPty is one spawned agent session's PTY state.
type ManagedPty struct {
	ID         string
	Command    string
	Dir        string
	Pid        int
	Scrollback *Scrollback

	writeMu sync.Mutex
	master  *os.File
	cmd     *exec.Cmd

	exitOnce sync.Once
	exitCh   chan struct{}
	lastExit *ExitEvent
	exitMu   sync.Mutex

	handlers Handlers
}

// SpawnOptions configures a new child.
type SpawnOptions struct {
	ID             string
	Command        string // shell command line, run via "sh -c"
	Dir            string
	EnvOverlay     map[string]string
	InitialSize    Size
	ScrollbackSize int // bytes; 0 means DefaultScrollbackBytes
	Handlers       Handlers
}

// Spawn opens a PTY, forks/execs the command behind it, and starts the
// read loop and exit watcher goroutines.
func Spawn(opts SpawnOptions) (*ManagedPty, error) {
	cmd := exec.Command("sh", "-c", opts.Command)
	cmd.Dir = opts.Dir
	cmd.Env = cleanEnv(environ(), opts.EnvOverlay)

	size := &pty.Winsize{Rows: opts.InitialSize.Rows, Cols: opts.InitialSize.Cols}
	master, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, kilderr.PtyShellSpawn("starting %s", opts.Command).Wrap(err)
	}

	mp := &ManagedPty{
		ID:         opts.ID,
		Command:    opts.Command,
		Dir:        opts.Dir,
		Pid:        cmd.Process.Pid,
		Scrollback: NewScrollback(opts.ScrollbackSize),
		master:     master,
		cmd:        cmd,
		exitCh:     make(chan struct{}),
		handlers:   opts.Handlers,
	}

	go mp.readLoop()
	go mp.exitWatcher()

	return mp, nil
}

// readLoop copies master output into scrollback and the output handler
// until the master is closed or the child exits (surfacing as EIO).
//
// The append to scrollback and the call to OnOutput happen under the
// same lock (Scrollback.WriteAndNotify), paired with Manager.Attach's
// Scrollback.SnapshotAndAttach: a newly attaching client's replay
// snapshot and its first live message are always a consistent cut, so
// no byte is ever delivered twice or dropped across the attach moment.
func (m *ManagedPty) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := m.master.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			m.Scrollback.WriteAndNotify(chunk, func() {
				if m.handlers.OnOutput != nil {
					m.handlers.OnOutput(chunk)
				}
			})
		}
		if err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) && pathErr.Err == syscall.EIO {
				return // child exited; expected per teacher's invokeAgent
			}
			return
		}
	}
}

// exitWatcher waits for the child and records the final exit event.
func (m *ManagedPty) exitWatcher() {
	err := m.cmd.Wait()
	ev := ExitEvent{At: time.Now().UTC()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		ev.ExitCode = 0
	case errors.As(err, &exitErr):
		ev.ExitCode = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			ev.Signal = ws.Signal().String()
		}
	default:
		ev.ExitCode = -1
	}

	m.exitMu.Lock()
	m.lastExit = &ev
	m.exitMu.Unlock()

	m.exitOnce.Do(func() { close(m.exitCh) })
	if m.handlers.OnExit != nil {
		m.handlers.OnExit(ev)
	}
}

// LastExit returns the recorded exit event, if the child has exited.
func (m *ManagedPty) LastExit() (ExitEvent, bool) {
	m.exitMu.Lock()
	defer m.exitMu.Unlock()
	if m.lastExit == nil {
		return ExitEvent{}, false
	}
	return *m.lastExit, true
}

// Done returns a channel closed once the child has exited.
func (m *ManagedPty) Done() <-chan struct{} { return m.exitCh }

// Write sends bytes to the child's stdin. Safe for concurrent callers;
// serialized behind an internal writer lock per spec.md §4.3.
func (m *ManagedPty) Write(p []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if _, err := m.master.Write(p); err != nil {
		return kilderr.PtyWrite("writing to pty %s", m.ID).Wrap(err)
	}
	return nil
}

// Resize sets the window size on the master. No side effects on
// scrollback (spec.md §4.3).
func (m *ManagedPty) Resize(size Size) error {
	err := pty.Setsize(m.master, &pty.Winsize{Rows: size.Rows, Cols: size.Cols})
	if err != nil {
		return kilderr.PtyResize("resizing pty %s", m.ID).Wrap(err)
	}
	return nil
}

// Close sends signal to the child; the exit watcher finalizes state.
// A nil signal sends SIGTERM.
func (m *ManagedPty) Close(sig os.Signal) error {
	if sig == nil {
		sig = syscall.SIGTERM
	}
	if m.cmd.Process == nil {
		return nil
	}
	if err := m.cmd.Process.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return kilderr.ProcessKillFailed("signaling pid %d", m.Pid).Wrap(err)
	}
	return nil
}

// Kill forcibly terminates the child (SIGKILL), used after the grace
// period escalation in internal/lifecycle expires.
func (m *ManagedPty) Kill() error {
	return m.Close(syscall.SIGKILL)
}
