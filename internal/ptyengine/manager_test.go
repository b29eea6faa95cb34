package ptyengine

import (
	"strings"
	"testing"
	"time"
)

func TestSpawnEchoesOutputToHandler(t *testing.T) {
	var out strings.Builder
	done := make(chan struct{})

	mp, err := Spawn(SpawnOptions{
		ID:          "s1",
		Command:     "printf hello",
		Dir:         t.TempDir(),
		InitialSize: Size{Rows: 24, Cols: 80},
		Handlers: Handlers{
			OnOutput: func(data []byte) { out.Write(data) },
			OnExit:   func(ExitEvent) { close(done) },
		},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for exit")
	}

	if !strings.Contains(out.String(), "hello") {
		t.Fatalf("expected output to contain hello, got %q", out.String())
	}
	ev, ok := mp.LastExit()
	if !ok || ev.ExitCode != 0 {
		t.Fatalf("expected clean exit, got %+v ok=%v", ev, ok)
	}
}

func TestWriteDeliversStdinToChild(t *testing.T) {
	done := make(chan struct{})
	var out strings.Builder

	mp, err := Spawn(SpawnOptions{
		ID:          "s2",
		Command:     "read line; echo \"got:$line\"",
		Dir:         t.TempDir(),
		InitialSize: Size{Rows: 24, Cols: 80},
		Handlers: Handlers{
			OnOutput: func(data []byte) { out.Write(data) },
			OnExit:   func(ExitEvent) { close(done) },
		},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if err := mp.Write([]byte("world\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for exit")
	}

	if !strings.Contains(out.String(), "got:world") {
		t.Fatalf("expected echoed input, got %q", out.String())
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	_, err := r.Spawn(SpawnOptions{
		ID:          "reg1",
		Command:     "true",
		Dir:         t.TempDir(),
		InitialSize: Size{Rows: 24, Cols: 80},
		Handlers:    Handlers{OnExit: func(ExitEvent) { close(done) }},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if _, err := r.Get("reg1"); err != nil {
		t.Fatalf("expected reg1 to be registered: %v", err)
	}

	<-done
	r.Remove("reg1")
	if _, err := r.Get("reg1"); err == nil {
		t.Fatalf("expected reg1 to be gone after Remove")
	}
}
