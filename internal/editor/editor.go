// Package editor is the editor backend registry (spec.md §9). Per the
// spec's Non-goals ("editor launchers" are out of scope), this package
// stops at the interface + registry + two illustrative backends
// grounded on original_source's editor/backends/{vscode,zed}.rs — it
// does not attempt flag construction beyond passing through caller-
// supplied flags, and it is never invoked by the lifecycle engine.
package editor

import (
	"os/exec"

	"github.com/kildhq/kild/internal/kilderr"
)

// Backend opens a path in an editor.
type Backend interface {
	Name() string
	DisplayName() string
	IsAvailable() bool
	IsTerminalEditor() bool
	Open(path string, flags []string) error
}

type execBackend struct {
	name, displayName, binary string
	terminal                  bool
}

func (e execBackend) Name() string          { return e.name }
func (e execBackend) DisplayName() string   { return e.displayName }
func (e execBackend) IsTerminalEditor() bool { return e.terminal }

func (e execBackend) IsAvailable() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

func (e execBackend) Open(path string, flags []string) error {
	args := append(append([]string{}, flags...), path)
	cmd := exec.Command(e.binary, args...)
	if err := cmd.Start(); err != nil {
		return kilderr.IO("spawning editor %s", e.binary).Wrap(err)
	}
	return nil
}

var registry = []Backend{
	execBackend{name: "code", displayName: "VS Code", binary: "code"},
	execBackend{name: "zed", displayName: "Zed", binary: "zed"},
}

// Get looks up a backend by name.
func Get(name string) (Backend, bool) {
	for _, b := range registry {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// Detect returns the first available backend in registration order.
func Detect() (Backend, bool) {
	for _, b := range registry {
		if b.IsAvailable() {
			return b, true
		}
	}
	return nil, false
}
