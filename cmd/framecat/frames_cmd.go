package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/spf13/cobra"
)

func encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode FILE MESSAGE...",
		Short: "Write each message as one length-prefixed frame to FILE (- for stdout)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return encodeFrames(cmd.OutOrStdout(), args[1:])
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := encodeFrames(f, args[1:]); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE",
		Short: "Print every frame payload in a raw capture (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			n, err := decodeFrames(in, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}
			return nil
		},
	}
}

func encodeFrames(w io.Writer, msgs []string) error {
	bw := bufio.NewWriter(w)
	for _, m := range msgs {
		if err := frame.WriteFrame(bw, []byte(m)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// decodeFrames prints one line per frame until a clean EOF and returns how
// many frames were read.
func decodeFrames(r io.Reader, out io.Writer) (int, error) {
	br := bufio.NewReader(r)
	n := 0
	for {
		payload, err := frame.ReadFrame(br)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		fmt.Fprintf(out, "%d\t%q\n", len(payload), payload)
		n++
	}
}
