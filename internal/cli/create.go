package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/agents"
	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/ipcclient"
	"github.com/kildhq/kild/internal/lifecycle"
	"github.com/kildhq/kild/internal/session"
)

var (
	createAgent   string
	createBaseRef string
)

func init() {
	createCmd.Flags().StringVar(&createAgent, "agent", agents.DefaultAgent, "Agent to launch ("+agents.SupportedNamesString()+")")
	createCmd.Flags().StringVar(&createBaseRef, "base", "", "Base ref for the new branch (defaults to current HEAD)")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a new session: worktree, branch, and a running agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := currentProject()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}

		host := dialDaemonHost()
		eng := lifecycle.NewEngine(store, host, cfg)

		sess, err := eng.Create(context.Background(), lifecycle.CreateRequest{
			Project:     proj,
			Branch:      args[0],
			Agent:       createAgent,
			BaseRef:     createBaseRef,
			RuntimeMode: session.RuntimeDaemon,
			Rows:        24,
			Cols:        80,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s✓%s created %s (%s) at %s\n", ansiGreen, ansiReset, sess.ID, sess.Branch, sess.WorktreePath)
		return nil
	},
}

// dialDaemonHost dials the running daemon over its unix socket and
// wraps the connection as a daemon.Host. The "kild" CLI binary has no
// in-process daemon manager — cmd/kild-daemon owns the real
// *daemon.Manager and is reached over IPC from here. Returns a nil
// daemon.Host (not a typed nil pointer) if no daemon is reachable, so
// lifecycle.Engine's own nil check behaves correctly; the resulting
// "no daemon manager available" error is surfaced to the user when a
// daemon-mode operation actually needs it.
func dialDaemonHost() daemon.Host {
	client, err := dialDaemon()
	if err != nil {
		return nil
	}
	return ipcclient.NewDaemonHost(client)
}
