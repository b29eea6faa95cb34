package gitops

import (
	"strings"
	"testing"
)

func TestKildBranchNamePrependsPrefix(t *testing.T) {
	got, err := KildBranchName("feat/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "kild/feat/a" {
		t.Fatalf("got %q, want kild/feat/a", got)
	}
}

func TestKildBranchNameIdempotent(t *testing.T) {
	got, err := KildBranchName("kild/feat/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "kild/feat/a" {
		t.Fatalf("got %q, want kild/feat/a", got)
	}
}

func TestKildBranchNameRejectsBareCollision(t *testing.T) {
	if _, err := KildBranchName("kild"); err == nil {
		t.Fatalf("expected error for bare reserved name")
	}
}

func TestWorktreePathCleanForOrdinarySlashBranch(t *testing.T) {
	// The common case (spec §8 scenario 1): a plain slash-separated
	// branch sanitizes losslessly and gets no disambiguating hash.
	p := WorktreePath("/home/u/proj", "proj", "feat/a")
	if !strings.HasSuffix(p, "/feat-a") {
		t.Fatalf("got %q, want a clean .../feat-a path with no hash suffix", p)
	}
}

func TestWorktreePathDistinctForSpacesUnicodeCasing(t *testing.T) {
	branches := []string{
		"feat a",
		"feat/ünïcode",
		"Feat/A",
	}
	seen := map[string]string{}
	for _, b := range branches {
		p := WorktreePath("/home/u/proj", "proj", b)
		if prev, ok := seen[p]; ok && prev != b {
			t.Fatalf("branch %q and %q both sanitize to path %q", b, prev, p)
		}
		seen[p] = b
	}
	// "feat a" (lossy: whitespace collapsed, hashed) and "Feat/A" (lossy:
	// case folded, hashed) must not collide with the clean, unhashed
	// path for "feat/a" or with each other.
	plain := WorktreePath("/home/u/proj", "proj", "feat/a")
	spaced := WorktreePath("/home/u/proj", "proj", "feat a")
	cased := WorktreePath("/home/u/proj", "proj", "Feat/A")
	if plain == spaced || plain == cased || spaced == cased {
		t.Fatalf("expected disambiguating hashes, got collision among %q, %q, %q", plain, spaced, cased)
	}
}

func TestWorktreePathUnderKildWorktreesSibling(t *testing.T) {
	p := WorktreePath("/home/u/proj", "proj", "kild/feat-a")
	if !strings.Contains(p, "/kild-worktrees/proj/") {
		t.Fatalf("expected path under kild-worktrees/proj, got %q", p)
	}
}

func TestValidateBranchNameRejectsDangerousChars(t *testing.T) {
	for _, bad := range []string{"", "-flag", "a..b", "a/", "a~b", "a^b"} {
		if err := ValidateBranchName(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if err := ValidateBranchName("feat/a-valid_1.2"); err != nil {
		t.Fatalf("unexpected error for valid name: %v", err)
	}
}
