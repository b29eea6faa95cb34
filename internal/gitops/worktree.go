package gitops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kildhq/kild/internal/fileutil"
	"github.com/kildhq/kild/internal/kilderr"
)

// Project is the minimal shape gitops needs from the project registry —
// kept local to avoid an import cycle with internal/projects.
type Project struct {
	ID   string
	Name string
	Root string
}

// WorktreeResult is what CreateWorktree returns on success.
type WorktreeResult struct {
	Branch string
	Path   string
}

// CreateWorktree resolves the base ref (defaulting to the main repo's
// current HEAD), creates the branch if absent, and runs `git worktree
// add` at the computed path. Any failure rolls back fully: no branch,
// no directory left behind (spec.md §4.2). includePatterns are copied
// from the main checkout into the new worktree afterward (spec.md §6.2
// [include].patterns) — `git worktree add` only materializes tracked
// files, so local untracked files like .env never show up otherwise.
func CreateWorktree(project Project, userBranch, baseRef string, includePatterns []string) (*WorktreeResult, error) {
	if err := ValidateBranchName(userBranch); err != nil {
		return nil, err
	}
	branch, err := KildBranchName(userBranch)
	if err != nil {
		return nil, err
	}

	main := NewRepo(project.Root)
	if baseRef == "" {
		baseRef, err = main.HeadCommit("")
		if err != nil {
			return nil, err
		}
	}

	path := WorktreePath(project.Root, project.Name, strings.TrimPrefix(branch, BranchPrefix))

	branchCreated := false
	if !main.BranchExists(branch) {
		if err := main.CreateBranch(branch, baseRef); err != nil {
			return nil, err
		}
		branchCreated = true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		rollbackBranch(main, branch, branchCreated)
		return nil, kilderr.IO("creating worktree parent directory").Wrap(err)
	}

	if err := main.CreateWorktree(path, branch); err != nil {
		rollbackBranch(main, branch, branchCreated)
		return nil, err
	}

	if len(includePatterns) > 0 {
		if err := fileutil.CopyIncluded(project.Root, path, includePatterns); err != nil {
			_ = main.RemoveWorktree(path, true)
			rollbackBranch(main, branch, branchCreated)
			return nil, err
		}
	}

	return &WorktreeResult{Branch: branch, Path: path}, nil
}

func rollbackBranch(main *Repo, branch string, created bool) {
	if created {
		_ = main.DeleteBranch(branch, true)
	}
}

// RemoveWorktree removes a worktree at path. If the worktree has
// uncommitted changes and force is false, it fails with a
// GitUncommittedChanges error rather than discarding work.
func RemoveWorktree(projectRoot, worktreePath string, force bool) error {
	wt := NewRepo(worktreePath)
	if !force {
		dirty, err := wt.HasUncommittedChanges()
		if err != nil {
			return err
		}
		if dirty {
			return kilderr.GitUncommittedChanges(worktreePath)
		}
	}
	main := NewRepo(projectRoot)
	return main.RemoveWorktree(worktreePath, force)
}

// DeleteBranchIfExists deletes a local branch, returning nil if it's
// already gone.
func DeleteBranchIfExists(projectRoot, branch string, force bool) error {
	main := NewRepo(projectRoot)
	if !main.BranchExists(branch) {
		return nil
	}
	return main.DeleteBranch(branch, force)
}

// FetchRemote fetches the configured remote for a session's main project.
func FetchRemote(projectRoot string) error {
	return NewRepo(projectRoot).Fetch("origin")
}

// RebaseWorktree rebases a worktree's branch onto another branch,
// returning a structured conflict error on failure (spec.md §4.2).
func RebaseWorktree(worktreePath, onto string) error {
	return NewRepo(worktreePath).Rebase(onto)
}
