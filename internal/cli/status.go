package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/gitops"
	"github.com/kildhq/kild/internal/session"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show branch health and file-overlap warnings across active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sessionStore()
		if err != nil {
			return err
		}
		ps, err := projectStore()
		if err != nil {
			return err
		}
		sessions, err := store.LoadAll()
		if err != nil {
			return err
		}
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

		active := make([]*session.Session, 0, len(sessions))
		for _, sess := range sessions {
			if sess.Status == session.StatusActive || sess.Status == session.StatusIdle {
				active = append(active, sess)
			}
		}
		if len(active) == 0 {
			fmt.Printf("%sno active sessions%s\n", ansiDim, ansiReset)
			return nil
		}

		branchFiles := make([]gitops.BranchFiles, 0, len(active))
		for _, sess := range active {
			repo := gitops.NewRepo(sess.WorktreePath)

			baseRef := sess.Branch
			if proj, perr := ps.Find(sess.ProjectID); perr == nil {
				if b, berr := gitops.NewRepo(proj.Root).CurrentBranch(); berr == nil {
					baseRef = b
				}
			}

			health, err := gitops.CollectBranchHealth(repo, sess.Branch, baseRef)
			if err != nil {
				fmt.Printf("%s✗%s %-30s health check failed: %s\n", ansiRed, ansiReset, sess.ID, err)
				continue
			}
			printHealth(sess, health)

			if files, err := repo.FilesChanged(sess.Branch, baseRef); err == nil {
				branchFiles = append(branchFiles, gitops.BranchFiles{SessionID: sess.ID, Files: files})
			}
		}

		overlaps := gitops.CollectFileOverlaps(branchFiles)
		if len(overlaps) > 0 {
			fmt.Println()
			fmt.Printf("%sfile overlaps:%s\n", ansiYellow, ansiReset)
			for _, o := range overlaps {
				fmt.Printf("  %s <-> %s: %v\n", o.SessionA, o.SessionB, o.Files)
			}
		}
		return nil
	},
}

func printHealth(sess *session.Session, h *gitops.BranchHealth) {
	symbol, color := stateDisplay(sess.Status)
	flags := ""
	if h.Uncommitted {
		flags += " uncommitted"
	}
	if len(h.Conflicts) > 0 {
		flags += fmt.Sprintf(" conflicts=%d", len(h.Conflicts))
	}
	fmt.Printf("%s%s%s %-30s +%d/-%d  drift=%dd%s\n",
		color, symbol, ansiReset, sess.ID, h.Ahead, h.Behind, h.BaseDriftDays, flags)
}
