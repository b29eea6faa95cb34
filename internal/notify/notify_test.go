package notify

import "testing"

func TestTerminalBellAlwaysAvailable(t *testing.T) {
	b, ok := Get("terminal-bell")
	if !ok || !b.IsAvailable() {
		t.Fatalf("expected terminal-bell backend to always be available")
	}
}

func TestGetUnknownBackend(t *testing.T) {
	if _, ok := Get("growl"); ok {
		t.Fatalf("expected unknown backend to be absent")
	}
}

func TestUrgencyOrDefault(t *testing.T) {
	if got := urgencyOrDefault("critical"); got != "critical" {
		t.Fatalf("got %q", got)
	}
	if got := urgencyOrDefault("bogus"); got != "normal" {
		t.Fatalf("got %q, want normal fallback", got)
	}
}
