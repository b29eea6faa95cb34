package daemon

import (
	"encoding/base64"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/kildhq/kild/internal/protocol"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	mgr := NewManager(testIDGen())
	srv := NewServer(mgr, nil)

	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	if err := srv.Listen(sockPath); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, sockPath
}

func dial(t *testing.T, sockPath string) (*protocol.Reader, *protocol.Writer, net.Conn) {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return protocol.NewReader(conn), protocol.NewWriter(conn), conn
}

func TestPingPong(t *testing.T) {
	_, sockPath := startTestServer(t)
	r, w, _ := dial(t, sockPath)

	if err := w.Write(protocol.ClientMessage{Type: protocol.MsgPing, ID: "1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := r.ReadInto(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != protocol.MsgPong || reply.ID != "1" {
		t.Fatalf("got %+v", reply)
	}
}

func TestOpenPtyThenAttachReceivesOutputAndExit(t *testing.T) {
	_, sockPath := startTestServer(t)
	r, w, _ := dial(t, sockPath)

	if err := w.Write(protocol.ClientMessage{
		Type: protocol.MsgOpenPty, ID: "open1",
		SessionID: "proj/b", Command: "printf hi", Cwd: t.TempDir(),
		Rows: 24, Cols: 80,
	}); err != nil {
		t.Fatalf("write open: %v", err)
	}
	var opened protocol.DaemonMessage
	if err := r.ReadInto(&opened); err != nil {
		t.Fatalf("read open reply: %v", err)
	}
	if opened.Type != protocol.MsgOpenedPty {
		t.Fatalf("got %+v", opened)
	}

	if err := w.Write(protocol.ClientMessage{
		Type: protocol.MsgAttach, ID: "att1", DaemonSessionID: opened.DaemonSessionID,
	}); err != nil {
		t.Fatalf("write attach: %v", err)
	}

	var ack protocol.DaemonMessage
	if err := r.ReadInto(&ack); err != nil || ack.Type != protocol.MsgAck {
		t.Fatalf("expected ack, got %+v err=%v", ack, err)
	}

	var collected []byte
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var frame protocol.DaemonMessage
		if err := r.ReadInto(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch frame.Type {
		case protocol.MsgPtyOutput:
			data, err := base64.StdEncoding.DecodeString(frame.DataBase64)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			collected = append(collected, data...)
		case protocol.MsgPtyExit:
			if string(collected) != "hi" {
				t.Fatalf("expected output 'hi' before exit, got %q", collected)
			}
			return
		}
	}
	t.Fatalf("timed out before PtyExit, collected %q", collected)
}

func TestListSessions(t *testing.T) {
	_, sockPath := startTestServer(t)
	r, w, _ := dial(t, sockPath)

	if err := w.Write(protocol.ClientMessage{
		Type: protocol.MsgOpenPty, ID: "open1",
		SessionID: "proj/b", Command: "sleep 1", Cwd: t.TempDir(), Rows: 24, Cols: 80,
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var opened protocol.DaemonMessage
	if err := r.ReadInto(&opened); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := w.Write(protocol.ClientMessage{Type: protocol.MsgListSessions, ID: "ls1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := r.ReadInto(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != protocol.MsgSessions || len(reply.List) != 1 {
		t.Fatalf("got %+v", reply)
	}
}
