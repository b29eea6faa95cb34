package daemon

import (
	"fmt"
	"testing"
	"time"
)

func testIDGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ds-%d", n)
	}
}

func TestOpenAttachReplaysSnapshotThenLive(t *testing.T) {
	mgr := NewManager(testIDGen())

	id, err := mgr.Open(OpenOptions{
		SessionID: "proj/branch",
		Command:   "printf AB; sleep 0.2; printf CD",
		Cwd:       t.TempDir(),
		Rows:      24, Cols: 80,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	time.Sleep(100 * time.Millisecond) // let "AB" land in scrollback first

	res, err := mgr.Attach(id, "client1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if string(res.Scrollback) != "AB" {
		t.Fatalf("expected scrollback AB, got %q", res.Scrollback)
	}

	var got []byte
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-res.Sub.C():
			if !ok {
				if string(got) != "CD" {
					t.Fatalf("expected live bytes CD, got %q", got)
				}
				return
			}
			got = append(got, msg.Output...)
		case <-timeout:
			t.Fatalf("timed out, got %q", got)
		}
	}
}

func TestGetByLogicalID(t *testing.T) {
	mgr := NewManager(testIDGen())
	id, err := mgr.Open(OpenOptions{SessionID: "proj/b", Command: "true", Cwd: t.TempDir(), Rows: 24, Cols: 80})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ds, err := mgr.GetByLogicalID("proj/b")
	if err != nil || ds.ID != id {
		t.Fatalf("got %+v, %v", ds, err)
	}
}

func TestReapRemovesOnlyAfterExit(t *testing.T) {
	mgr := NewManager(testIDGen())
	id, err := mgr.Open(OpenOptions{SessionID: "proj/b", Command: "sleep 0.3", Cwd: t.TempDir(), Rows: 24, Cols: 80})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	mgr.Reap(id) // still running; should be a no-op
	if _, err := mgr.Get(id); err != nil {
		t.Fatalf("expected session still present before exit: %v", err)
	}

	mgr.WaitReap(id)
	if _, err := mgr.Get(id); err == nil {
		t.Fatalf("expected session reaped after exit")
	}
}

func TestDetachRemovesFromAllSessions(t *testing.T) {
	mgr := NewManager(testIDGen())
	id, err := mgr.Open(OpenOptions{SessionID: "proj/b", Command: "sleep 0.5", Cwd: t.TempDir(), Rows: 24, Cols: 80})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := mgr.Attach(id, "c1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	mgr.Detach("c1")

	list := mgr.List()
	if len(list) != 1 || list[0].Attached != 0 {
		t.Fatalf("expected 0 attached clients after detach, got %+v", list)
	}
}
