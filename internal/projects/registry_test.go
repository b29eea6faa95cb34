package projects

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterIsIdempotent(t *testing.T) {
	home := t.TempDir()
	repo := t.TempDir()
	s := NewStore(home)

	p1, err := s.Register(repo, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	p2, err := s.Register(repo, "")
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if p1.ID != p2.ID {
		t.Fatalf("expected same id on re-register, got %q vs %q", p1.ID, p2.ID)
	}
}

func TestFirstRegisteredIsDefault(t *testing.T) {
	home := t.TempDir()
	s := NewStore(home)

	p1, err := s.Register(t.TempDir(), "first")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !p1.IsDefault {
		t.Fatalf("expected first project to be default")
	}

	p2, err := s.Register(t.TempDir(), "second")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p2.IsDefault {
		t.Fatalf("expected second project to not be default")
	}
}

func TestSetDefaultIsExclusive(t *testing.T) {
	home := t.TempDir()
	s := NewStore(home)

	p1, _ := s.Register(t.TempDir(), "a")
	p2, _ := s.Register(t.TempDir(), "b")

	if err := s.SetDefault(p2.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, p := range list {
		want := p.ID == p2.ID
		if p.IsDefault != want {
			t.Fatalf("project %s: IsDefault=%v, want %v", p.ID, p.IsDefault, want)
		}
	}
	_ = p1
}

func TestRemove(t *testing.T) {
	home := t.TempDir()
	s := NewStore(home)
	p, _ := s.Register(t.TempDir(), "gone")

	if err := s.Remove(p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Find(p.ID); err == nil {
		t.Fatalf("expected project to be gone")
	}
}

func TestDetectFindsEnclosingGitRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := Detect(nested)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	gotAbs, _ := filepath.Abs(got)
	rootAbs, _ := filepath.Abs(root)
	if gotAbs != rootAbs {
		t.Fatalf("got %q, want %q", gotAbs, rootAbs)
	}
}
