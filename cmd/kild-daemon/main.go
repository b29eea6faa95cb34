// Command kild-daemon is the long-running background process that
// hosts every daemon-mode PTY session and serves the IPC protocol over
// $HOME/.kild/daemon.sock. Most users reach it via `kild daemon run`;
// this binary exists separately so it can be supervised (systemd user
// unit, launchd agent) without going through the kild CLI's cobra tree.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/session"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	home, err := os.UserHomeDir()
	if err != nil {
		log.Error("kild-daemon.home_dir_failed", "error", err)
		os.Exit(1)
	}
	kildHome := filepath.Join(home, ".kild")

	store := session.NewStore(filepath.Join(kildHome, "sessions"))

	idGen := func() string { return fmt.Sprintf("ds-%d", time.Now().UnixNano()) }
	mgr := daemon.NewManager(idGen)

	srv := daemon.NewServer(mgr, log)
	if err := srv.Listen(daemon.SocketPath(home)); err != nil {
		log.Error("kild-daemon.listen_failed", "error", err)
		os.Exit(1)
	}

	rec := daemon.NewReconciler(store, mgr, log)
	if err := daemon.Run(srv, rec, log); err != nil {
		log.Error("kild-daemon.run_failed", "error", err)
		os.Exit(1)
	}
}
