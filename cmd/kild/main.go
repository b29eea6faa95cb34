// Command kild is the CLI surface for managing parallel AI coding
// agents in isolated git worktrees: create/open/stop/complete/destroy
// sessions, attach to a running agent's terminal, and inspect the
// daemon and project registry.
package main

import (
	"os"

	"github.com/kildhq/kild/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
