package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/gitops"
	"github.com/kildhq/kild/internal/lifecycle"
)

var destroyForce bool

func init() {
	destroyCmd.Flags().BoolVar(&destroyForce, "force", false, "skip the uncommitted/unpushed/open-PR safety check")
	rootCmd.AddCommand(destroyCmd)
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <session-id>",
	Short: "Permanently remove a session's worktree, branch, and records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}

		sess, err := store.Load(args[0])
		if err != nil {
			return err
		}

		proj, err := currentProject()
		if err != nil {
			return err
		}

		var owner, repoName string
		if o, r, rerr := gitops.NewRepo(sess.WorktreePath).RemoteOwnerRepo(); rerr == nil {
			owner, repoName = o, r
		}

		eng := lifecycle.NewEngine(store, dialDaemonHost(), cfg)
		if err := eng.Destroy(context.Background(), args[0], proj.Root, destroyForce, owner, repoName); err != nil {
			return err
		}

		fmt.Printf("%s✓%s destroyed %s\n", ansiGreen, ansiReset, args[0])
		return nil
	},
}
