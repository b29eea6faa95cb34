package editor

import "testing"

func TestGetKnownBackend(t *testing.T) {
	b, ok := Get("zed")
	if !ok || b.DisplayName() != "Zed" {
		t.Fatalf("got (%+v, %v)", b, ok)
	}
}

func TestGetUnknownBackend(t *testing.T) {
	if _, ok := Get("notepad"); ok {
		t.Fatalf("expected unknown backend to be absent")
	}
}
