package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kildhq/kild/internal/protocol"
)

func init() {
	rootCmd.AddCommand(attachCmd)
}

var attachCmd = &cobra.Command{
	Use:   "attach <session-id>",
	Short: "Attach the local terminal to a session's daemon-hosted PTY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sessionStore()
		if err != nil {
			return err
		}
		sess, err := store.Load(args[0])
		if err != nil {
			return err
		}
		latest := sess.LatestAgent()
		if latest == nil || !latest.IsDaemon() {
			return fmt.Errorf("session %s has no daemon-hosted agent to attach to", args[0])
		}

		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		if _, err := client.Request(protocol.ClientMessage{
			Type:            protocol.MsgAttach,
			DaemonSessionID: latest.DaemonSessionID,
		}); err != nil {
			return err
		}

		return runAttachLoop(client.Reader(), client.Writer(), latest.DaemonSessionID)
	},
}

// runAttachLoop takes over the connection after Attach's Ack: it is a
// single multiplexed stream carrying both the server's unprompted
// PtyOutput/PtyExit pushes and the Ack/Error replies to our own
// mid-stream Write/Resize requests, so exactly one goroutine must own
// the reader — callers issuing Write/Resize write-only and let this
// loop absorb their Ack frames alongside the PTY output.
func runAttachLoop(r *protocol.Reader, w *protocol.Writer, daemonSessionID string) error {
	stdinFD := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(stdinFD) {
		prev, err := term.MakeRaw(stdinFD)
		if err == nil {
			restore = func() { _ = term.Restore(stdinFD, prev) }
			defer restore()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			cols, rows, err := term.GetSize(stdinFD)
			if err != nil {
				continue
			}
			_ = w.Write(protocol.ClientMessage{
				Type: protocol.MsgResize, DaemonSessionID: daemonSessionID,
				Rows: rows, Cols: cols,
			})
		}
	}()

	stdinErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				werr := w.Write(protocol.ClientMessage{
					Type: protocol.MsgWrite, DaemonSessionID: daemonSessionID,
					DataBase64: base64.StdEncoding.EncodeToString(buf[:n]),
				})
				if werr != nil {
					stdinErr <- werr
					return
				}
			}
			if err != nil {
				stdinErr <- err
				return
			}
		}
	}()

	for {
		var msg protocol.DaemonMessage
		if err := r.ReadInto(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch msg.Type {
		case protocol.MsgPtyOutput:
			data, err := base64.StdEncoding.DecodeString(msg.DataBase64)
			if err != nil {
				continue
			}
			os.Stdout.Write(data)
		case protocol.MsgPtyExit:
			fmt.Printf("\r\n%s[session exited: status=%d signal=%s]%s\r\n", ansiDim, msg.Status, msg.Signal, ansiReset)
			return nil
		case protocol.MsgError:
			fmt.Fprintf(os.Stderr, "\r\n%s%s: %s%s\r\n", ansiRed, msg.Code, msg.Message, ansiReset)
		}
	}
}
