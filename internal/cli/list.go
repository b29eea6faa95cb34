package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every known session and its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sessionStore()
		if err != nil {
			return err
		}
		sessions, err := store.LoadAll()
		if err != nil {
			return err
		}

		sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

		if len(sessions) == 0 {
			fmt.Printf("%sno sessions%s\n", ansiDim, ansiReset)
			return nil
		}

		for _, sess := range sessions {
			symbol, color := stateDisplay(sess.Status)
			fmt.Printf("%s%s%s %-30s %-9s %s\n", color, symbol, ansiReset, sess.ID, sess.Status, sess.Branch)
		}
		return nil
	},
}
