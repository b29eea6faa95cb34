// Package gitops is the Git Worktree Driver (C2, spec.md §4.2). It
// wraps the host's git binary the way the teacher repo's internal/git
// package does — shelling out, retrying transient lock failures —
// generalized from a single-worktree-per-concern model to KILD's
// one-worktree-per-session model with branch naming, health queries,
// and file-overlap detection.
package gitops

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kildhq/kild/internal/kilderr"
)

// Retry constants for transient git errors (ported from the teacher's internal/git package).
const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 6
	retryMultiplier   = 2
)

var transientPatterns = []string{
	"index file open failed",
	"index.lock",
	"cannot lock ref",
}

func isTransient(errMsg string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(errMsg, p) {
			return true
		}
	}
	return false
}

// Repo wraps git operations rooted at a single directory (the main
// checkout, or a worktree of it).
type Repo struct {
	Dir string
}

func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir}
}

// sleepFunc is swapped out in tests to avoid real delays.
var sleepFunc = time.Sleep

func (r *Repo) run(args ...string) (string, error) {
	delay := retryInitialDelay
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		cmd := exec.Command("git", args...)
		cmd.Dir = r.Dir
		out, err := cmd.CombinedOutput()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		errMsg := strings.TrimSpace(string(out))
		lastErr = kilderr.GitFailed("git %s: %s", strings.Join(args, " "), errMsg).Wrap(err)
		if !isTransient(errMsg) || attempt == retryMaxAttempts-1 {
			return "", lastErr
		}
		sleepFunc(delay)
		delay *= retryMultiplier
	}
	return "", lastErr
}

// HeadCommit returns the commit hash at HEAD for the given ref ("" means current HEAD).
func (r *Repo) HeadCommit(ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	return r.run("rev-parse", ref)
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch() (string, error) {
	return r.run("rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists checks if a local branch exists.
func (r *Repo) BranchExists(branch string) bool {
	_, err := r.run("show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// CreateBranch creates a new branch from a starting point.
func (r *Repo) CreateBranch(name, from string) error {
	_, err := r.run("branch", name, from)
	return err
}

// DeleteBranch deletes a local branch. force uses -D instead of -d.
func (r *Repo) DeleteBranch(name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.run("branch", flag, name)
	return err
}

// CreateWorktree creates a git worktree for a branch at path.
func (r *Repo) CreateWorktree(path, branch string) error {
	_, err := r.run("worktree", "add", path, branch)
	return err
}

// RemoveWorktree removes a worktree. force passes --force to git, which
// discards a dirty worktree rather than refusing.
func (r *Repo) RemoveWorktree(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := r.run(args...)
	return err
}

// HasUncommittedChanges reports whether the worktree has a dirty status.
func (r *Repo) HasUncommittedChanges() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// HasUnpushedCommits reports whether the branch has commits not present
// on its configured upstream. Returns false, nil if there is no upstream.
func (r *Repo) HasUnpushedCommits(branch string) (bool, error) {
	upstream, err := r.run("rev-parse", "--abbrev-ref", branch+"@{upstream}")
	if err != nil {
		return false, nil // no upstream configured
	}
	out, err := r.run("rev-list", "--count", upstream+".."+branch)
	if err != nil {
		return false, err
	}
	count := strings.TrimSpace(out)
	return count != "" && count != "0", nil
}

// AheadBehind returns how many commits branch is ahead/behind of base.
func (r *Repo) AheadBehind(branch, base string) (ahead, behind int, err error) {
	out, err := r.run("rev-list", "--left-right", "--count", branch+"..."+base)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Fields(out)
	if len(parts) != 2 {
		return 0, 0, kilderr.GitFailed("unexpected rev-list output %q", out)
	}
	fmt.Sscanf(parts[0], "%d", &ahead)
	fmt.Sscanf(parts[1], "%d", &behind)
	return ahead, behind, nil
}

// BaseDriftDays returns how many days old the merge-base between branch and base is.
func (r *Repo) BaseDriftDays(branch, base string) (int, error) {
	mergeBase, err := r.run("merge-base", branch, base)
	if err != nil {
		return 0, err
	}
	out, err := r.run("log", "-1", "--format=%ct", mergeBase)
	if err != nil {
		return 0, err
	}
	var unixSec int64
	fmt.Sscanf(out, "%d", &unixSec)
	days := int(time.Since(time.Unix(unixSec, 0)).Hours() / 24)
	return days, nil
}

// FilesChanged returns the set of files modified on branch's commits
// since its merge-base with base. Uncommitted worktree changes are not
// included.
func (r *Repo) FilesChanged(branch, base string) ([]string, error) {
	out, err := r.run("diff", "--name-only", base+"..."+branch)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Fetch fetches from the given remote (default "origin").
func (r *Repo) Fetch(remote string) error {
	if remote == "" {
		remote = "origin"
	}
	_, err := r.run("fetch", remote)
	return err
}

func (r *Repo) abortRebase() {
	_, _ = r.run("rebase", "--abort") // ignore error — fails if no rebase in progress
}

// Rebase rebases the current branch onto targetBranch. On conflict the
// rebase is aborted and a structured conflict error is returned,
// leaving the worktree on its pre-rebase HEAD (unlike the teacher's
// fire-and-forget reset, KILD's worktrees hold an agent's live work so
// destructive auto-reset is not appropriate here).
func (r *Repo) Rebase(targetBranch string) error {
	r.abortRebase()
	branch, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	if _, err := r.run("rebase", targetBranch); err != nil {
		r.abortRebase()
		return kilderr.GitRebaseConflict(branch, targetBranch).Wrap(err)
	}
	return nil
}

// HasRemote reports whether a remote named "origin" is configured.
func (r *Repo) HasRemote() bool {
	_, err := r.run("remote", "get-url", "origin")
	return err == nil
}

// DeleteRemoteBranch deletes a branch on the origin remote, ignoring
// "not found" style failures (the branch may already be gone).
func (r *Repo) DeleteRemoteBranch(branch string) error {
	_, err := r.run("push", "origin", "--delete", branch)
	if err != nil && strings.Contains(err.Error(), "remote ref does not exist") {
		return nil
	}
	return err
}

// RemoteOwnerRepo parses the origin remote's URL into a forge
// owner/repo pair, accepting both the SSH shorthand
// (git@github.com:owner/repo.git) and HTTPS forms
// (https://github.com/owner/repo.git).
func (r *Repo) RemoteOwnerRepo() (owner, repoName string, err error) {
	out, runErr := r.run("remote", "get-url", "origin")
	if runErr != nil {
		return "", "", kilderr.IO("no origin remote configured").Wrap(runErr)
	}
	url := strings.TrimSpace(out)
	url = strings.TrimSuffix(url, ".git")

	var path string
	switch {
	case strings.Contains(url, "://"):
		parts := strings.SplitN(url, "://", 2)
		if len(parts) != 2 {
			return "", "", kilderr.IO("unrecognized remote URL: " + url)
		}
		segs := strings.SplitN(parts[1], "/", 2)
		if len(segs) != 2 {
			return "", "", kilderr.IO("unrecognized remote URL: " + url)
		}
		path = segs[1]
	case strings.Contains(url, ":"):
		parts := strings.SplitN(url, ":", 2)
		if len(parts) != 2 {
			return "", "", kilderr.IO("unrecognized remote URL: " + url)
		}
		path = parts[1]
	default:
		return "", "", kilderr.IO("unrecognized remote URL: " + url)
	}

	segs := strings.SplitN(path, "/", 2)
	if len(segs) != 2 || segs[0] == "" || segs[1] == "" {
		return "", "", kilderr.IO("unrecognized remote path: " + path)
	}
	return segs[0], segs[1], nil
}
