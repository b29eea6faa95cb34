package acceptance_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Scenario 2 (spec.md §8 "Destroy safety"): a session with an
// uncommitted change in its worktree refuses a non-forced destroy and
// leaves the filesystem untouched; --force tears everything down.
var _ = Describe("destroy safety", func() {
	var env *kildEnv

	BeforeEach(func() {
		env = newKildEnv()
		env.startDaemon()
		env.mustRun("create", "feat/a", "--agent", "claude")
	})

	AfterEach(func() {
		env.cleanup()
	})

	It("refuses to destroy a session with an uncommitted file", func() {
		id := env.sessionID("feat/a")
		sess, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())

		dirtyFile := filepath.Join(sess.WorktreePath, "scratch.txt")
		Expect(os.WriteFile(dirtyFile, []byte("wip\n"), 0644)).To(Succeed())

		out, err := env.run("destroy", id)
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("SAFETY_UNCOMMITTED"))

		_, statErr := os.Stat(sess.WorktreePath)
		Expect(statErr).NotTo(HaveOccurred(), "worktree must survive a refused destroy")
		_, loadErr := env.sessionStore().Load(id)
		Expect(loadErr).NotTo(HaveOccurred(), "session record must survive a refused destroy")
	})

	It("destroys a dirty session when forced", func() {
		id := env.sessionID("feat/a")
		sess, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())

		dirtyFile := filepath.Join(sess.WorktreePath, "scratch.txt")
		Expect(os.WriteFile(dirtyFile, []byte("wip\n"), 0644)).To(Succeed())

		env.mustRun("destroy", id, "--force")

		_, statErr := os.Stat(sess.WorktreePath)
		Expect(statErr).To(HaveOccurred(), "worktree must be removed")
		_, loadErr := env.sessionStore().Load(id)
		Expect(loadErr).To(HaveOccurred(), "session record must be removed")

		branches := runGitOutput(env.repoDir, "branch")
		Expect(branches).NotTo(ContainSubstring("kild/feat/a"))
	})

	It("reports SESSION_NOT_FOUND for a session that doesn't exist, with no partial mutation", func() {
		out, err := env.run("destroy", "does-not-exist/nope")
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("SESSION_NOT_FOUND"))
	})
})
