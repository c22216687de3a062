package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/framewire/internal/config"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/transport"
	"github.com/spf13/cobra"
)

var configFlag string

func main() {
	logging.ConfigureRuntime()

	rootCmd := &cobra.Command{
		Use:           "framecat",
		Short:         "Send and echo length-prefixed frames over TCP, TLS or WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Transport config file (.toml, .yaml, .yml)")

	rootCmd.AddCommand(
		listenCmd(),
		sendCmd(),
		configCmd(),
		encodeCmd(),
		decodeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "framecat: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (transport.Config, error) {
	if strings.TrimSpace(configFlag) == "" {
		return transport.DefaultConfig(), nil
	}
	return config.Load(configFlag)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func isWebSocketURL(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}
