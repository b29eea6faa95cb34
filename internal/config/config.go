// Package config implements the hierarchical configuration layer
// (C9, spec.md §6.2): site defaults -> user config (~/.kild/config.toml)
// -> project config (.kild.toml), merged the way the teacher's
// internal/config.Load/Validate pair works — load, apply defaults,
// validate, return structured errors — adapted from YAML to TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kildhq/kild/internal/kilderr"
)

// NavModifier is the GUI keyboard navigation modifier (spec §6.2); the
// GUI itself is out of scope, but the config contract for it is kept.
type NavModifier string

const (
	NavCtrl     NavModifier = "ctrl"
	NavAlt      NavModifier = "alt"
	NavCmdShift NavModifier = "cmd+shift"
)

// Duration wraps time.Duration for TOML strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// DaemonConfig is the [daemon] table.
type DaemonConfig struct {
	Enabled   *bool `toml:"enabled"`
	AutoStart *bool `toml:"auto_start"`
}

func (d DaemonConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

func (d DaemonConfig) IsAutoStart() bool {
	return d.AutoStart != nil && *d.AutoStart
}

// AgentConfig is one entry of the [agents.<name>] table.
type AgentConfig struct {
	Command string `toml:"command"`
}

// PortsConfig is the [ports] table.
type PortsConfig struct {
	RangeSize int `toml:"range_size"`
}

// UiConfig is the [ui] table (GUI contract only, no GUI here).
type UiConfig struct {
	NavModifier NavModifier `toml:"nav_modifier"`
}

// IncludeConfig is the [include] table.
type IncludeConfig struct {
	Patterns []string `toml:"patterns"`
}

// ProcessConfig is the [process] table (SIGTERM/SIGKILL grace, spec §9 open question (b)).
type ProcessConfig struct {
	KillGraceMS int `toml:"kill_grace_ms"`
}

func (p ProcessConfig) KillGrace() time.Duration {
	if p.KillGraceMS <= 0 {
		return DefaultKillGrace
	}
	return time.Duration(p.KillGraceMS) * time.Millisecond
}

// DefaultKillGrace is the default SIGTERM->SIGKILL escalation window.
const DefaultKillGrace = 5 * time.Second

// DefaultPortRangeSize is the default port block size per session.
const DefaultPortRangeSize = 10

// Config is the merged configuration, as loaded from the hierarchy.
type Config struct {
	Daemon  DaemonConfig           `toml:"daemon"`
	Agents  map[string]AgentConfig `toml:"agents"`
	Ports   PortsConfig            `toml:"ports"`
	Ui      UiConfig               `toml:"ui"`
	Include IncludeConfig          `toml:"include"`
	Process ProcessConfig          `toml:"process"`
}

// defaultConfig returns the site-default baseline every hierarchy load starts from.
func defaultConfig() *Config {
	return &Config{
		Ports: PortsConfig{RangeSize: DefaultPortRangeSize},
	}
}

// loadLayer reads and parses a single TOML file into cfg, leaving cfg
// unmodified if the file does not exist (a hierarchy layer is optional).
func loadLayer(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return kilderr.IO("reading config %s", path).Wrap(err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return kilderr.ConfigInvalid("parsing %s: %s", path, err)
	}
	return nil
}

// UserConfigPath returns ~/.kild/config.toml.
func UserConfigPath(home string) string {
	return filepath.Join(home, ".kild", "config.toml")
}

// ProjectConfigPath returns <repoRoot>/.kild.toml.
func ProjectConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".kild.toml")
}

// LoadHierarchy loads site defaults, then the user config, then the
// project config, each layer overriding the previous one field by
// field (later, non-zero values win). A layer that cannot be read or
// parsed (a value of the wrong type included) is skipped with a warning
// to stderr, so its fields fall back to the earlier layers rather than
// aborting the whole load (spec §6.2 "Invalid values warn and
// fall back to defaults").
func LoadHierarchy(home, repoRoot string) (*Config, error) {
	cfg := defaultConfig()

	userPath := UserConfigPath(home)
	userCfg := &Config{}
	if err := loadLayer(userPath, userCfg); err != nil {
		fmt.Fprintf(os.Stderr, "kild: warning: %s (using defaults)\n", err)
	} else {
		merge(cfg, userCfg)
	}

	if repoRoot != "" {
		projPath := ProjectConfigPath(repoRoot)
		projCfg := &Config{}
		if err := loadLayer(projPath, projCfg); err != nil {
			fmt.Fprintf(os.Stderr, "kild: warning: %s (ignoring project config)\n", err)
		} else {
			merge(cfg, projCfg)
		}
	}

	return cfg, nil
}

// merge overlays src onto dst, field by field, for fields that have an
// unambiguous "unset" zero value.
func merge(dst, src *Config) {
	if src.Daemon.Enabled != nil {
		dst.Daemon.Enabled = src.Daemon.Enabled
	}
	if src.Daemon.AutoStart != nil {
		dst.Daemon.AutoStart = src.Daemon.AutoStart
	}
	if len(src.Agents) > 0 {
		if dst.Agents == nil {
			dst.Agents = make(map[string]AgentConfig)
		}
		for k, v := range src.Agents {
			dst.Agents[k] = v
		}
	}
	if src.Ports.RangeSize > 0 {
		dst.Ports.RangeSize = src.Ports.RangeSize
	}
	if src.Ui.NavModifier != "" {
		dst.Ui.NavModifier = src.Ui.NavModifier
	}
	if len(src.Include.Patterns) > 0 {
		dst.Include.Patterns = src.Include.Patterns
	}
	if src.Process.KillGraceMS > 0 {
		dst.Process.KillGraceMS = src.Process.KillGraceMS
	}
}

// Validate checks the merged config for hard errors. An invalid agent
// name override is the one config error the spec calls out as hard
// (not a warn-and-fallback case) because it silently breaks `create`.
func Validate(cfg *Config, knownAgents map[string]bool) error {
	for name := range cfg.Agents {
		if !knownAgents[name] {
			return kilderr.ConfigUnknownAgent(name)
		}
	}
	switch cfg.Ui.NavModifier {
	case "", NavCtrl, NavAlt, NavCmdShift:
	default:
		return kilderr.ConfigInvalid("ui.nav_modifier must be one of ctrl, alt, cmd+shift (got %q)", cfg.Ui.NavModifier)
	}
	return nil
}

// DefaultIncludePatterns mirrors files KILD copies into new worktrees
// from the main checkout when [include].patterns is unset.
func DefaultIncludePatterns() []string {
	return []string{".env", ".env.local", ".vscode/settings.json"}
}
