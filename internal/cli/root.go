// Package cli is KILD's command-line surface, grounded on the
// teacher's cobra command tree in internal/cli/root.go: one file per
// command and plain fmt.Printf/Fprintf output rather than a TUI
// framework. The root command defines no persistent flags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kild",
	Short: "Run parallel AI coding agents in isolated git worktrees",
	Long: `KILD gives each coding agent an isolated git worktree, a dedicated
branch, and a persistent terminal session, optionally hosted by a
background daemon so the agent keeps running after you close the
terminal. A lifecycle (create, open, stop, complete, destroy) tracks
each agent from spawn through completion.`,
	// Execute prints one formatted diagnostic line per failure; cobra's
	// own "Error: ..." plus a usage dump would just repeat it.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kild %s\n", Version)
	},
}

// Execute runs the root command, printing any error as a single
// formatted diagnostic line (spec.md §7) rather than cobra's default
// "Error: ..." plus a usage dump.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", ansiRed, formatErr(err), ansiReset)
		return err
	}
	return nil
}
