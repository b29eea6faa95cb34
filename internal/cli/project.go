package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/projects"
)

func init() {
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectDefaultCmd)
	projectCmd.AddCommand(projectExportCmd)
	projectCmd.AddCommand(projectImportCmd)
	rootCmd.AddCommand(projectCmd)
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the registry of known projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project (defaults to the current directory's git root)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveProjectArg(args)
		if err != nil {
			return err
		}
		ps, err := projectStore()
		if err != nil {
			return err
		}
		proj, err := ps.Register(root, "")
		if err != nil {
			return err
		}
		fmt.Printf("%s✓%s registered %s (%s)\n", ansiGreen, ansiReset, proj.Name, proj.Root)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := projectStore()
		if err != nil {
			return err
		}
		list, err := ps.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Printf("%sno registered projects%s\n", ansiDim, ansiReset)
			return nil
		}
		for _, p := range list {
			marker := " "
			if p.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %-20s %s\n", marker, p.Name, p.Root)
		}
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <id-or-path>",
	Short: "Unregister a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := projectStore()
		if err != nil {
			return err
		}
		if err := ps.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s✓%s removed\n", ansiGreen, ansiReset)
		return nil
	},
}

var projectDefaultCmd = &cobra.Command{
	Use:   "default <id-or-path>",
	Short: "Set the default project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := projectStore()
		if err != nil {
			return err
		}
		if err := ps.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s✓%s default project set\n", ansiGreen, ansiReset)
		return nil
	},
}

var projectExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the project registry as YAML (to a file, or stdout if path is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := projectStore()
		if err != nil {
			return err
		}
		out, err := ps.ExportYAML()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err := cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(args[0], out, 0600); err != nil {
			return err
		}
		fmt.Printf("%s✓%s exported registry to %s\n", ansiGreen, ansiReset, args[0])
		return nil
	},
}

var projectImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Merge a YAML-encoded project registry into the local one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := projectStore()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := ps.ImportYAML(data); err != nil {
			return err
		}
		fmt.Printf("%s✓%s imported registry from %s\n", ansiGreen, ansiReset, args[0])
		return nil
	},
}

func resolveProjectArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return projects.Detect(cwd)
}
