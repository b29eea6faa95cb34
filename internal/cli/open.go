package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/lifecycle"
)

func init() {
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <session-id>",
	Short: "Launch another agent process in an existing session's worktree",
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

		eng := lifecycle.NewEngine(store, dialDaemonHost(), cfg)
		sess, err := eng.Open(context.Background(), args[0], 24, 80)
		if err != nil {
			return err
		}

		fmt.Printf("%s✓%s opened %s (spawn #%d)\n", ansiGreen, ansiReset, sess.ID, sess.LatestAgent().SpawnID)
		return nil
	},
}
