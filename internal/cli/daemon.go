package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kildhq/kild/internal/daemon"
	"github.com/kildhq/kild/internal/protocol"
)

func init() {
	daemonCmd.AddCommand(daemonRunCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the KILD daemon process",
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground, serving IPC until a signal is received",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := kildHome()
		if err != nil {
			return err
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		idGen := func() string {
			return fmt.Sprintf("ds-%d", time.Now().UnixNano())
		}
		mgr := daemon.NewManager(idGen)

		srv := daemon.NewServer(mgr, log)
		if err := srv.Listen(daemon.SocketPath(filepath.Dir(home))); err != nil {
			return err
		}

		rec := daemon.NewReconciler(store, mgr, log)
		return daemon.Run(srv, rec, log)
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDaemon()
		if err != nil {
			fmt.Printf("%s·%s daemon not reachable: %s\n", ansiDim, ansiReset, err)
			return nil
		}
		defer client.Close()

		if _, err := client.Request(protocol.ClientMessage{Type: protocol.MsgPing}); err != nil {
			fmt.Printf("%s✗%s daemon reachable but not responding: %s\n", ansiRed, ansiReset, err)
			return nil
		}

		reply, err := client.Request(protocol.ClientMessage{Type: protocol.MsgListSessions})
		if err != nil {
			return err
		}
		fmt.Printf("%s✓%s daemon running, %d active session(s)\n", ansiGreen, ansiReset, len(reply.List))
		return nil
	},
}
