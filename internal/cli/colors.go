package cli

import (
	"errors"
	"fmt"

	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/session"
)

// ANSI escape codes for terminal colors
const (
	ansiGreen       = "\033[32m"
	ansiCyan        = "\033[36m"
	ansiYellow      = "\033[33m"
	ansiRed         = "\033[31m"
	ansiDim         = "\033[2m"
	ansiBoldMagenta = "\033[1;35m"
	ansiReset       = "\033[0m"
)

// stateDisplay returns the symbol and color for a session's status.
func stateDisplay(status session.Status) (symbol, color string) {
	switch status {
	case session.StatusCreated:
		return "◯", ansiYellow
	case session.StatusActive:
		return "⟳", ansiCyan
	case session.StatusIdle:
		return "·", ansiDim
	case session.StatusStopped:
		return "⊘", ansiDim
	case session.StatusCompleted:
		return "✓", ansiGreen
	case session.StatusError:
		return "✗", ansiRed
	default:
		return "◯", ansiReset
	}
}

// formatErr renders the single-line diagnostic spec.md §7 calls for:
// a KilError's machine-readable code bracketed before its message, or
// just the plain message for an error from outside the taxonomy (a
// wrapped os/exec or git failure, say).
func formatErr(err error) string {
	var ke kilderr.KilError
	if errors.As(err, &ke) {
		return fmt.Sprintf("[%s] %s", ke.Code(), err)
	}
	return err.Error()
}
