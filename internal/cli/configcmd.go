package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/config"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the user-level ~/.kild/config.toml",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the user config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := kildHome()
		if err != nil {
			return err
		}
		fmt.Println(config.UserConfigPath(filepath.Dir(home)))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective merged config (site -> user -> project)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		raw, err := toRaw(cfg)
		if err != nil {
			return err
		}
		out, err := config.WriteRaw(raw)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

// configSetCmd sets one key, named by its first positional arg, to the
// string value given as its second.
var configSetCmd = &cobra.Command{
	Use:   "set <table.key> <value>",
	Short: "Set a single key in the user config file, preserving every other key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := kildHome()
		if err != nil {
			return err
		}
		path := config.UserConfigPath(filepath.Dir(home))

		text, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		raw, err := config.ParseRaw(text)
		if err != nil {
			return err
		}
		if raw == nil {
			raw = config.RawFile{}
		}

		if err := setDotted(raw, args[0], args[1]); err != nil {
			return err
		}

		out, err := config.WriteRaw(raw)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0600); err != nil {
			return err
		}
		fmt.Printf("%s✓%s set %s\n", ansiGreen, ansiReset, args[0])
		return nil
	},
}

// setDotted sets raw[table][key] = value for a "table.key" path,
// creating the table if absent. A bare "key" (no dot) sets a top-level
// key directly.
func setDotted(raw config.RawFile, dotted, value string) error {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			table, key := dotted[:i], dotted[i+1:]
			sub, ok := raw[table].(map[string]any)
			if !ok {
				sub = map[string]any{}
			}
			sub[key] = value
			raw[table] = sub
			return nil
		}
	}
	raw[dotted] = value
	return nil
}

// toRaw round-trips cfg through TOML encoding into a generic map purely
// for display via `config show` — it never feeds back into LoadHierarchy.
func toRaw(cfg *config.Config) (config.RawFile, error) {
	encoded, err := config.WriteRaw(config.RawFile{
		"agents":  cfg.Agents,
		"ports":   cfg.Ports,
		"process": cfg.Process,
		"daemon":  cfg.Daemon,
		"ui":      cfg.Ui,
		"include": cfg.Include,
	})
	if err != nil {
		return nil, err
	}
	return config.ParseRaw(encoded)
}
