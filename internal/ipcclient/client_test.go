package ipcclient

import (
	"path/filepath"
	"testing"

	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/protocol"
)

func newTestIDGen() func() string {
	n := 0
	return func() string {
		n++
		return "ds-test"
	}
}

func TestClientPingRoundTrip(t *testing.T) {
	mgr := daemon.NewManager(newTestIDGen())
	srv := daemon.NewServer(mgr, nil)

	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	if err := srv.Listen(sockPath); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	transport, err := DialUnix(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := New(transport)
	t.Cleanup(func() { c.Close() })

	reply, err := c.Request(protocol.ClientMessage{Type: protocol.MsgPing})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if reply.Type != protocol.MsgPong {
		t.Fatalf("got %+v", reply)
	}
}

func TestNormalizeFingerprintAcceptsColonSeparated(t *testing.T) {
	got, err := normalizeFingerprint("AB:CD:ef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeFingerprintRejectsInvalidHex(t *testing.T) {
	if _, err := normalizeFingerprint("not-hex-zz"); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
