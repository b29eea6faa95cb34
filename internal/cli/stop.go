package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/lifecycle"
)

func init() {
	rootCmd.AddCommand(stopCmd)
}

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Terminate a session's running agent (SIGTERM, then SIGKILL after a grace period)",
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
		sess, err := eng.Stop(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s✓%s stopped %s\n", ansiGreen, ansiReset, sess.ID)
		return nil
	},
}
