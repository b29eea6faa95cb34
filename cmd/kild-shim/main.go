// Command kild-shim is a tiny standalone binary for agent hook scripts
// to report working-state changes without linking the whole kild CLI:
//
//	kild-shim <session-id> <working|waiting|idle|error>
//
// It writes the agent_status sidecar directly through internal/session
// and exits; it has no other dependencies on the daemon or IPC layer.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kildhq/kild/internal/session"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: kild-shim <session-id> <working|waiting|idle|error>")
		os.Exit(2)
	}
	sessionID, stateArg := os.Args[1], os.Args[2]

	state, ok := parseState(stateArg)
	if !ok {
		fmt.Fprintf(os.Stderr, "kild-shim: unknown state %q\n", stateArg)
		os.Exit(2)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kild-shim:", err)
		os.Exit(1)
	}
	store := session.NewStore(filepath.Join(home, ".kild", "sessions"))

	err = store.WriteAgentStatus(sessionID, &session.AgentStatus{
		State:     state,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "kild-shim:", err)
		os.Exit(1)
	}
}

func parseState(s string) (session.AgentStatusState, bool) {
	switch s {
	case "working":
		return session.AgentWorking, true
	case "waiting":
		return session.AgentWaiting, true
	case "idle":
		return session.AgentIdle, true
	case "error":
		return session.AgentError, true
	default:
		return "", false
	}
}
