package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/forge"
	"github.com/kildhq/kild/internal/gitops"
	"github.com/kildhq/kild/internal/lifecycle"
)

func init() {
	rootCmd.AddCommand(completeCmd)
}

var completeCmd = &cobra.Command{
	Use:   "complete <session-id>",
	Short: "Check the session's PR status and mark it Completed on RemoteDeleted or PrNotMerged",
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
		owner, repoName, err := gitops.NewRepo(sess.WorktreePath).RemoteOwnerRepo()
		if err != nil {
			return err
		}

		eng := lifecycle.NewEngine(store, dialDaemonHost(), cfg)
		sess, outcome, err := eng.Complete(context.Background(), args[0], owner, repoName)
		if err != nil {
			return err
		}

		switch outcome {
		case forge.OutcomeRemoteDeleted, forge.OutcomePrNotMerged:
			fmt.Printf("%s✓%s %s complete (%s)\n", ansiGreen, ansiReset, sess.ID, outcome)
		case forge.OutcomePrCheckUnavailable:
			fmt.Printf("%s·%s %s: PR status unavailable\n", ansiDim, ansiReset, sess.ID)
		default:
			fmt.Printf("%s⟳%s %s: %s\n", ansiYellow, ansiReset, sess.ID, outcome)
		}
		return nil
	},
}
