package lifecycle

import (
	"context"

	"github.com/kildhq/kild/internal/forge"
	"github.com/kildhq/kild/internal/gitops"
)

// DestroySafety is the precheck result gating destroy() (spec.md §4.7).
type DestroySafety struct {
	HasUncommitted  bool
	HasUnpushed     bool
	HasOpenPR       bool
	RemoteConfigured bool
}

// Blocks reports whether any condition refuses a non-forced destroy.
func (s DestroySafety) Blocks() bool {
	return s.HasUncommitted || (s.RemoteConfigured && s.HasUnpushed) || s.HasOpenPR
}

// CheckDestroySafety inspects a worktree and (best-effort) its forge PR
// state to build the precheck spec.md's destroy() requires.
func CheckDestroySafety(ctx context.Context, worktreePath, branch, owner, repo string) (DestroySafety, error) {
	wt := gitops.NewRepo(worktreePath)

	dirty, err := wt.HasUncommittedChanges()
	if err != nil {
		return DestroySafety{}, err
	}

	remoteConfigured := wt.HasRemote()
	unpushed := false
	if remoteConfigured {
		unpushed, err = wt.HasUnpushedCommits(branch)
		if err != nil {
			return DestroySafety{}, err
		}
	}

	openPR := false
	if b, ok := forge.Detect(ctx); ok && owner != "" && repo != "" {
		status, err := b.QueryPR(ctx, owner, repo, branch)
		if err == nil && status.Outcome == forge.OutcomePrNotMerged && status.Number != 0 {
			openPR = true
		}
	}

	return DestroySafety{
		HasUncommitted:   dirty,
		HasUnpushed:      unpushed,
		HasOpenPR:        openPR,
		RemoteConfigured: remoteConfigured,
	}, nil
}
