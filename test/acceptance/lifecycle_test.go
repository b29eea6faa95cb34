package acceptance_test

import (
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kildhq/kild/internal/session"
)

// Scenario 1 (spec.md §8 "Create + open + stop"): create() materializes
// a worktree and an Active session; open() appends a second
// AgentProcess without disturbing the first; stop() tears down both
// processes but leaves the worktree on disk.
var _ = Describe("create, open, stop", func() {
	var env *kildEnv

	BeforeEach(func() {
		env = newKildEnv()
		env.startDaemon()
	})

	AfterEach(func() {
		env.cleanup()
	})

	It("creates an Active session with a worktree and a port range", func() {
		out := env.mustRun("create", "feat/a", "--agent", "claude")
		Expect(out).To(ContainSubstring("created"))

		sess, err := env.sessionStore().Load(env.sessionID("feat/a"))
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Status).To(Equal(session.StatusActive))
		Expect(sess.Branch).To(Equal("kild/feat/a"))
		Expect(sess.WorktreePath).To(ContainSubstring("kild-worktrees"))
		Expect(sess.PortRangeEnd - sess.PortRangeStart + 1).To(Equal(sess.PortCount))
		Expect(sess.Agents).To(HaveLen(1))

		info, err := os.Stat(sess.WorktreePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("appends a second agent process on open without touching the first", func() {
		env.mustRun("create", "feat/a", "--agent", "claude")
		id := env.sessionID("feat/a")

		before, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())
		firstDaemonID := before.Agents[0].DaemonSessionID

		env.mustRun("open", id)

		after, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.Agents).To(HaveLen(2))
		Expect(after.Agents[0].DaemonSessionID).To(Equal(firstDaemonID))
		Expect(after.Agents[1].DaemonSessionID).NotTo(BeEmpty())
		Expect(after.Agents[1].DaemonSessionID).NotTo(Equal(firstDaemonID))
	})

	It("stops both processes and marks the session Stopped while keeping the worktree", func() {
		env.mustRun("create", "feat/a", "--agent", "claude")
		id := env.sessionID("feat/a")
		env.mustRun("open", id)

		sess, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())
		worktreePath := sess.WorktreePath

		env.mustRun("stop", id)

		stopped, err := env.sessionStore().Load(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(stopped.Status).To(Equal(session.StatusStopped))

		_, err = os.Stat(worktreePath)
		Expect(err).NotTo(HaveOccurred(), "worktree should survive stop")

		// Idempotent: stopping an already-stopped session is a no-op,
		// never an error (spec §8 round-trip property).
		out := env.mustRun("stop", id)
		Expect(strings.ToLower(out)).NotTo(ContainSubstring("error"))
	})
})
