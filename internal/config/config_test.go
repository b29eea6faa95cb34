package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHierarchyDefaultsWhenNoFiles(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadHierarchy(home, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ports.RangeSize != DefaultPortRangeSize {
		t.Fatalf("expected default port range size, got %d", cfg.Ports.RangeSize)
	}
}

func TestLoadHierarchyProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	repo := t.TempDir()

	writeFile(t, UserConfigPath(home), "[ports]\nrange_size = 20\n")
	writeFile(t, ProjectConfigPath(repo), "[ports]\nrange_size = 5\n")

	cfg, err := LoadHierarchy(home, repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ports.RangeSize != 5 {
		t.Fatalf("expected project layer to win with 5, got %d", cfg.Ports.RangeSize)
	}
}

func TestLoadHierarchyInvalidLayerFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	writeFile(t, UserConfigPath(home), "this is not valid toml {{{")

	cfg, err := LoadHierarchy(home, "")
	if err != nil {
		t.Fatalf("expected no hard error, got %v", err)
	}
	if cfg.Ports.RangeSize != DefaultPortRangeSize {
		t.Fatalf("expected fallback to defaults, got %d", cfg.Ports.RangeSize)
	}
}

func TestValidateRejectsUnknownAgent(t *testing.T) {
	cfg := &Config{Agents: map[string]AgentConfig{"not-an-agent": {Command: "foo"}}}
	known := map[string]bool{"claude": true, "codex": true}
	if err := Validate(cfg, known); err == nil {
		t.Fatalf("expected error for unknown agent override")
	}
}

func TestValidateAcceptsKnownAgent(t *testing.T) {
	cfg := &Config{Agents: map[string]AgentConfig{"claude": {Command: "claude"}}}
	known := map[string]bool{"claude": true}
	if err := Validate(cfg, known); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRawRoundTripPreservesUnknownKeys(t *testing.T) {
	text := []byte("[daemon]\nenabled = true\n\n[future_section]\nsome_key = \"value\"\n")
	raw, err := ParseRaw(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := WriteRaw(raw)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	roundTripped, err := ParseRaw(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	future, ok := roundTripped["future_section"].(map[string]any)
	if !ok {
		t.Fatalf("expected future_section to round-trip, got %+v", roundTripped)
	}
	if future["some_key"] != "value" {
		t.Fatalf("expected some_key to round-trip, got %+v", future)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
