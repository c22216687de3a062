package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/transport"
	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
)

// echoConn is what the echo loop needs from any framed connection.
type echoConn interface {
	transport.Blocking
	Shutdown() error
	RemoteAddr() net.Addr
}

func listenCmd() *cobra.Command {
	var (
		ws          bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "listen ADDR",
		Short: "Accept connections and echo every frame back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr)
				defer stop()
			}
			if ws {
				return serveWebSocket(ctx, args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ln, err := transport.Listen(args[0], cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())
			return serve(ctx, ln)
		},
	}
	cmd.Flags().BoolVar(&ws, "ws", false, "Serve frames over WebSocket (HTTP upgrade on /) instead of TCP")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on ADDR at /metrics")
	return cmd
}

// serve runs the accept loop until ctx is cancelled, then closes the
// listener with every connection it accepted.
func serve(ctx context.Context, ln *transport.Listener) error {
	logger := logging.Named("framecat")
	closed := make(chan error, 1)
	go func() {
		<-ctx.Done()
		closed <- ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			var he *transport.HandshakeError
			if errors.As(err, &he) {
				continue
			}
			if ctx.Err() != nil {
				return <-closed
			}
			_ = ln.Close()
			return err
		}
		logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("framecat.listen accepted")
		wg.Add(1)
		go func() {
			defer wg.Done()
			echo(conn)
		}()
	}
}

func echo(c echoConn) {
	logger := logging.Named("framecat")
	remote := c.RemoteAddr().String()
	defer c.Shutdown()

	var frames int
	for {
		p, err := c.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info().Str("remote", remote).Int("frames", frames).Msg("framecat.echo closed")
			} else {
				logger.Warn().Str("remote", remote).Int("frames", frames).Err(err).Msg("framecat.echo failed")
			}
			return
		}
		if err := c.Send(p); err != nil {
			logger.Warn().Str("remote", remote).Err(err).Msg("framecat.echo send failed")
			return
		}
		frames++
	}
}

func wsEchoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger := logging.Named("framecat")
			logger.Warn().Err(err).Msg("framecat.ws accept failed")
			return
		}
		echo(transport.NewWebSocket(r.Context(), ws))
	})
}

func serveWebSocket(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           wsEchoHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// serveMetrics exposes /metrics on addr until the returned stop is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger := logging.Named("framecat")
			logger.Warn().Str("addr", addr).Err(err).Msg("framecat.metrics stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
