package gitops

// FileOverlap records that two sessions' branches have both modified
// the same set of files relative to their common base — a likely
// merge-conflict warning surfaced by the dashboard (spec.md §4.2).
type FileOverlap struct {
	SessionA string   `json:"session_a"`
	SessionB string   `json:"session_b"`
	Files    []string `json:"files"`
}

// BranchFiles is the input to CollectFileOverlaps: one session's id,
// its branch, and the files it has modified relative to the base.
type BranchFiles struct {
	SessionID string
	Files     []string
}

// CollectFileOverlaps returns, for each pair of active sessions, the
// set of files modified by both relative to their shared base.
func CollectFileOverlaps(sessions []BranchFiles) []FileOverlap {
	var overlaps []FileOverlap
	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			common := intersect(sessions[i].Files, sessions[j].Files)
			if len(common) == 0 {
				continue
			}
			overlaps = append(overlaps, FileOverlap{
				SessionA: sessions[i].SessionID,
				SessionB: sessions[j].SessionID,
				Files:    common,
			})
		}
	}
	return overlaps
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, f := range a {
		set[f] = true
	}
	var out []string
	for _, f := range b {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}
