// Package notify is the notification backend registry (spec.md §9),
// grounded on original_source's kild-core/src/notify/{registry,backends
// /linux,errors}.rs. Per the spec's Non-goals, this stops at interface +
// registry + two illustrative backends: it does not attempt rich
// notification centers, action buttons, or delivery retries.
package notify

import (
	"os/exec"

	"github.com/kildhq/kild/internal/kilderr"
)

// Event is a session lifecycle event worth surfacing to the user.
type Event struct {
	Title   string
	Body    string
	Urgency string // "low", "normal", "critical"
}

// Backend delivers a notification through some OS mechanism.
type Backend interface {
	Name() string
	IsAvailable() bool
	Send(ev Event) error
}

type notifySendBackend struct{}

func (notifySendBackend) Name() string { return "notify-send" }

func (notifySendBackend) IsAvailable() bool {
	_, err := exec.LookPath("notify-send")
	return err == nil
}

func (notifySendBackend) Send(ev Event) error {
	args := []string{"-u", urgencyOrDefault(ev.Urgency), ev.Title, ev.Body}
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		return kilderr.NotifySendFailed("notify-send").Wrap(err)
	}
	return nil
}

type terminalBellBackend struct{}

func (terminalBellBackend) Name() string      { return "terminal-bell" }
func (terminalBellBackend) IsAvailable() bool { return true }

func (terminalBellBackend) Send(ev Event) error {
	_, err := exec.Command("tput", "bel").Output()
	if err != nil {
		return kilderr.NotifySendFailed("terminal-bell").Wrap(err)
	}
	return nil
}

func urgencyOrDefault(u string) string {
	switch u {
	case "low", "normal", "critical":
		return u
	default:
		return "normal"
	}
}

var registry = []Backend{
	notifySendBackend{},
	terminalBellBackend{},
}

// Detect returns the first available backend, or an error naming the
// required tool if none is (spec.md §9's NotifyToolMissing).
func Detect() (Backend, error) {
	for _, b := range registry {
		if b.IsAvailable() {
			return b, nil
		}
	}
	return nil, kilderr.NotifyToolMissing("notify-send")
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
