package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/gomega"

	"github.com/kildhq/kild/internal/projects"
	"github.com/kildhq/kild/internal/session"
)

func runGit(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
}

func runGitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
	return string(out)
}

func writeFile(path, content string) {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	err = os.WriteFile(path, []byte(content), 0644)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
}

// kildEnv is one throwaway KILD home plus one git repo it manages.
type kildEnv struct {
	home      string
	repoDir   string
	daemonCmd *exec.Cmd
}

// newKildEnv creates a fresh $HOME with an initialized git repo at
// home/repo, committing one file so branches have somewhere to fork
// from.
func newKildEnv() *kildEnv {
	home, err := os.MkdirTemp("", "kild-acceptance-*")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	repoDir := filepath.Join(home, "repo")
	ExpectWithOffset(1, os.MkdirAll(repoDir, 0755)).To(Succeed())
	runGit(home, "init", repoDir)
	runGit(repoDir, "checkout", "-b", "main")
	writeFile(filepath.Join(repoDir, "README.md"), "hello\n")
	runGit(repoDir, "add", "README.md")
	runGit(repoDir, "commit", "-m", "initial commit")

	// An agent command the daemon can actually spawn without any real
	// coding agent installed: a config override pointing "claude" at a
	// long-lived no-op so create/open/stop exercise the real PTY
	// lifecycle instead of failing on a missing binary.
	writeFile(filepath.Join(repoDir, ".kild.toml"), `
[agents.claude]
command = "sleep 300"
`)

	return &kildEnv{home: home, repoDir: repoDir}
}

func (e *kildEnv) cleanup() {
	e.stopDaemon()
	exec.Command("git", "-C", e.repoDir, "worktree", "prune").Run()
	os.RemoveAll(e.home)
}

func (e *kildEnv) startDaemon() {
	e.daemonCmd = exec.Command(daemonBin)
	e.daemonCmd.Env = append(os.Environ(), "HOME="+e.home)
	ExpectWithOffset(1, e.daemonCmd.Start()).To(Succeed())

	sockPath := filepath.Join(e.home, ".kild", "daemon.sock")
	EventuallyWithOffset(1, func() error {
		_, err := os.Stat(sockPath)
		return err
	}, 3*time.Second, 20*time.Millisecond).Should(Succeed())
}

func (e *kildEnv) stopDaemon() {
	if e.daemonCmd == nil || e.daemonCmd.Process == nil {
		return
	}
	_ = e.daemonCmd.Process.Kill()
	_ = e.daemonCmd.Wait()
}

// run executes `kild <args...>` with cwd in the repo and HOME pointed
// at this env, returning combined output.
func (e *kildEnv) run(args ...string) (string, error) {
	cmd := exec.Command(kildBin, args...)
	cmd.Dir = e.repoDir
	cmd.Env = append(os.Environ(), "HOME="+e.home)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (e *kildEnv) mustRun(args ...string) string {
	out, err := e.run(args...)
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "kild %v: %s", args, out)
	return out
}

// sessionStore opens this env's on-disk session store directly, so
// scenarios can assert on persisted fields the CLI's own plain-text
// output doesn't expose (port ranges, status, agents).
func (e *kildEnv) sessionStore() *session.Store {
	return session.NewStore(filepath.Join(e.home, ".kild", "sessions"))
}

// sessionID computes the id the CLI assigns a branch created in this
// env's repo: {project_id}/{branch}, where project_id is the stable
// hash of the repo's normalized path (internal/projects.ProjectID).
func (e *kildEnv) sessionID(branch string) string {
	return session.SessionID(projects.ProjectID(e.repoDir), branch)
}
