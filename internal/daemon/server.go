package daemon

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kildhq/kild/internal/broadcast"
	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/protocol"
)

// SocketPath returns the well-known unix socket path for a KILD home
// directory: $HOME/.kild/daemon.sock (spec.md §4.6).
func SocketPath(home string) string {
	return filepath.Join(home, ".kild", "daemon.sock")
}

// Server is the IPC Server (C6): a unix-domain-socket listener that
// decodes newline-delimited JSON ClientMessage frames and dispatches
// them against a Manager.
type Server struct {
	mgr      *Manager
	log      *slog.Logger
	listener net.Listener

	connCounter atomic.Int64
}

// NewServer wires a Manager to a logger. Call Listen then Serve.
func NewServer(mgr *Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{mgr: mgr, log: log}
}

// Listen creates the socket at path with the directory and socket
// permissions required by spec.md §4.6 (0700 dir, 0600 socket). Any
// stale socket file from a prior (crashed) daemon is removed first.
func (s *Server) Listen(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return kilderr.IO("creating daemon state dir %s", dir).Wrap(err)
	}
	_ = os.Chmod(dir, 0700)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return kilderr.IO("removing stale socket %s", path).Wrap(err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return kilderr.IO("listening on %s", path).Wrap(err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		ln.Close()
		return kilderr.IO("chmod socket %s", path).Wrap(err)
	}

	s.listener = ln
	return nil
}

// Serve accepts connections until the listener is closed (by Close, or
// by the shutdown sequence in shutdown.go).
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return kilderr.IPCConnect("accepting connection").Wrap(err)
		}
		clientID := uuid.NewString()
		go s.handleConn(clientID, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(clientID string, conn net.Conn) {
	defer conn.Close()
	defer s.mgr.Detach(clientID)

	r := protocol.NewReader(conn)
	w := protocol.NewWriter(conn)

	for {
		var msg protocol.ClientMessage
		if err := r.ReadInto(&msg); err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("ipc.server.read_error", "client_id", clientID, "error", err)
			}
			return
		}
		s.dispatch(clientID, &msg, w)
	}
}

func (s *Server) dispatch(clientID string, msg *protocol.ClientMessage, w *protocol.Writer) {
	switch msg.Type {
	case protocol.MsgPing:
		s.reply(w, protocol.DaemonMessage{Type: protocol.MsgPong, ID: msg.ID})

	case protocol.MsgOpenPty:
		daemonSessionID, err := s.mgr.Open(OpenOptions{
			SessionID:  msg.SessionID,
			Command:    msg.Command,
			Cwd:        msg.Cwd,
			EnvOverlay: msg.Env,
			Rows:       uint16(msg.Rows),
			Cols:       uint16(msg.Cols),
		})
		if err != nil {
			s.replyErr(w, msg.ID, protocol.ErrPtySpawnFailed, err)
			return
		}
		go s.mgr.WaitReap(daemonSessionID)
		s.reply(w, protocol.DaemonMessage{Type: protocol.MsgOpenedPty, ID: msg.ID, DaemonSessionID: daemonSessionID})

	case protocol.MsgAttach:
		res, err := s.mgr.Attach(msg.DaemonSessionID, clientID)
		if err != nil {
			s.replyErr(w, msg.ID, protocol.ErrSessionNotFound, err)
			return
		}
		s.reply(w, protocol.NewAck(msg.ID))
		if len(res.Scrollback) > 0 {
			s.sendOutput(w, msg.DaemonSessionID, res.Scrollback)
		}
		go s.streamAttach(w, msg.DaemonSessionID, res.Sub)

	case protocol.MsgDetach:
		s.mgr.Detach(clientID)
		s.reply(w, protocol.NewAck(msg.ID))

	case protocol.MsgWrite:
		data, err := base64.StdEncoding.DecodeString(msg.DataBase64)
		if err != nil {
			s.replyErr(w, msg.ID, protocol.ErrInvalidRequest, err)
			return
		}
		if err := s.mgr.Send(msg.DaemonSessionID, data); err != nil {
			s.replyErr(w, msg.ID, protocol.ErrPtyWriteFailed, err)
			return
		}
		s.reply(w, protocol.NewAck(msg.ID))

	case protocol.MsgResize:
		if err := s.mgr.Resize(msg.DaemonSessionID, uint16(msg.Rows), uint16(msg.Cols)); err != nil {
			s.replyErr(w, msg.ID, protocol.ErrInternal, err)
			return
		}
		s.reply(w, protocol.NewAck(msg.ID))

	case protocol.MsgClosePty:
		if err := s.mgr.Close(msg.DaemonSessionID, msg.Signal); err != nil {
			s.replyErr(w, msg.ID, protocol.ErrInternal, err)
			return
		}
		s.reply(w, protocol.NewAck(msg.ID))

	case protocol.MsgListSessions:
		s.reply(w, protocol.DaemonMessage{Type: protocol.MsgSessions, ID: msg.ID, List: s.mgr.List()})

	case protocol.MsgShutdown:
		s.reply(w, protocol.NewAck(msg.ID))

	default:
		s.replyErr(w, msg.ID, protocol.ErrInvalidRequest, kilderr.IPCProtocol("unknown message type %q", msg.Type))
	}
}

// streamAttach forwards a subscriber's messages as PtyOutput/PtyExit
// frames until the subscriber channel closes (eviction, detach, or
// session end). PtyExit is always the last frame sent for a stream that
// ends because the session exited (spec.md §4.4). A stream dropped for
// sustained backpressure instead gets a trailing Error{BACKPRESSURE}
// frame (spec.md §8 scenario 6), so the client can tell "the PTY ended"
// apart from "you were too slow and got cut off".
func (s *Server) streamAttach(w *protocol.Writer, daemonSessionID string, sub *broadcast.Subscriber) {
	for msg := range sub.C() {
		if msg.Exit != nil {
			_ = w.Write(protocol.DaemonMessage{
				Type:            protocol.MsgPtyExit,
				DaemonSessionID: daemonSessionID,
				Status:          msg.Exit.ExitCode,
				Signal:          msg.Exit.Signal,
			})
			return
		}
		s.sendOutput(w, daemonSessionID, msg.Output)
	}
	if sub.Evicted() {
		_ = w.Write(protocol.DaemonMessage{
			Type:            protocol.MsgError,
			DaemonSessionID: daemonSessionID,
			Code:            protocol.ErrBackpressure,
			Message:         "attach stream dropped: client fell too far behind",
		})
	}
}

func (s *Server) sendOutput(w *protocol.Writer, daemonSessionID string, data []byte) {
	_ = w.Write(protocol.DaemonMessage{
		Type:            protocol.MsgPtyOutput,
		DaemonSessionID: daemonSessionID,
		DataBase64:      base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Server) reply(w *protocol.Writer, msg protocol.DaemonMessage) {
	if err := w.Write(msg); err != nil {
		s.log.Warn("ipc.server.write_error", "error", err)
	}
}

func (s *Server) replyErr(w *protocol.Writer, id string, code protocol.ErrorCode, err error) {
	s.reply(w, protocol.NewError(id, code, err.Error()))
}
