package main

import (
	"context"
	"fmt"
	"io"

	"github.com/danmuck/framewire/internal/transport"
	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
)

func sendCmd() *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   "send ADDR MESSAGE...",
		Short: "Send each message as one frame and print the echoed replies",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			addr, msgs := args[0], args[1:]
			out := cmd.OutOrStdout()

			if isWebSocketURL(addr) {
				ws, _, err := websocket.Dial(ctx, addr, nil)
				if err != nil {
					return err
				}
				conn := transport.NewWebSocket(ctx, ws)
				defer conn.Shutdown()
				return sendBlocking(conn, msgs, !noWait, out)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := transport.Dial(ctx, addr, cfg)
			if err != nil {
				return err
			}
			defer conn.Shutdown()
			if noWait {
				return sendBlocking(conn, msgs, false, out)
			}
			return exchange(ctx, conn, msgs, out)
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Send without waiting for echoed replies")
	return cmd
}

// sendBlocking sends msgs in order, reading one reply after each when wait
// is set.
func sendBlocking(c transport.Blocking, msgs []string, wait bool, out io.Writer) error {
	for _, m := range msgs {
		if err := c.Send([]byte(m)); err != nil {
			return err
		}
		if !wait {
			continue
		}
		reply, err := c.Recv()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", reply)
	}
	return nil
}

// exchange pipelines msgs through the non-blocking capability, printing
// replies as they arrive until one has come back per message.
func exchange(ctx context.Context, c transport.NonBlocking, msgs []string, out io.Writer) error {
	pending := msgs
	received := 0
	for received < len(msgs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(pending) > 0 {
			switch err := c.TrySend([]byte(pending[0])); {
			case err == nil:
				pending = pending[1:]
			case !transport.IsWouldBlock(err):
				return err
			}
		}
		frames, err := c.TryRecv()
		if err != nil && !transport.IsWouldBlock(err) {
			return err
		}
		for _, f := range frames {
			fmt.Fprintf(out, "%s\n", f)
			received++
		}
	}
	return nil
}
