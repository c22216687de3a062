package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/danmuck/framewire/internal/testutil/tlstest"
)

type acceptResult struct {
	conn Conn
	err  error
}

func acceptAsync(l *Listener) <-chan acceptResult {
	ch := make(chan acceptResult, 1)
	go func() {
		c, err := l.Accept()
		ch <- acceptResult{conn: c, err: err}
	}()
	return ch
}

func waitAccept(t *testing.T, ch <-chan acceptResult) acceptResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatalf("accept timed out")
		return acceptResult{}
	}
}

func dialCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDialListenPlainEcho(t *testing.T) {
	testlog.Start(t)
	ln, err := Listen("127.0.0.1:0", DefaultConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), DefaultConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	if _, ok := client.(*Plain); !ok {
		t.Fatalf("expected *Plain, got %T", client)
	}
	res := waitAccept(t, accepted)
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}

	if err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := res.conn.Recv()
	if err != nil {
		t.Fatalf("server recv: %v", err)
	}
	if err := res.conn.Send(got); err != nil {
		t.Fatalf("server send: %v", err)
	}
	echo, err := client.Recv()
	if err != nil {
		t.Fatalf("client recv: %v", err)
	}
	if string(echo) != "ping" {
		t.Fatalf("echo=%q", echo)
	}
}

func TestDialListenMutualTLS(t *testing.T) {
	testlog.Start(t)
	serverCfg, clientCfg := mutualConfigs(t, tlstest.NewBundle(t, "client-a"))
	ln, err := Listen("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	res := waitAccept(t, accepted)
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}
	server, ok := res.conn.(*Secure)
	if !ok {
		t.Fatalf("expected *Secure, got %T", res.conn)
	}
	if server.PeerIdentity() != "client-a" {
		t.Fatalf("peer identity=%q", server.PeerIdentity())
	}

	if err := client.TrySend([]byte("over-tls")); err != nil {
		t.Fatalf("try send: %v", err)
	}
	got, err := server.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(got) != "over-tls" {
		t.Fatalf("got=%q", got)
	}
}

func TestListenerRejectsClientWithoutCertAndKeepsAccepting(t *testing.T) {
	testlog.Start(t)
	b := tlstest.NewBundle(t, "client-a")
	serverCfg, clientCfg := mutualConfigs(t, b)
	ln, err := Listen("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	anonCfg := DefaultConfig()
	anonCfg.TLS = TLSConfig{Enabled: true, CAFile: b.CAFile, ServerName: "localhost"}

	accepted := acceptAsync(ln)
	anon, err := Dial(dialCtx(t), ln.Addr().String(), anonCfg)
	if err == nil {
		defer anon.Shutdown()
	}
	res := waitAccept(t, accepted)
	var he *HandshakeError
	if !errors.As(res.err, &he) {
		t.Fatalf("expected *HandshakeError, got %T %v", res.err, res.err)
	}

	accepted = acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	if res := waitAccept(t, accepted); res.err != nil {
		t.Fatalf("accept after rejected handshake: %v", res.err)
	}
}

func TestSilentClientDoesNotBlockOtherHandshakes(t *testing.T) {
	testlog.Start(t)
	b := tlstest.NewBundle(t, "client-a")
	serverCfg, clientCfg := mutualConfigs(t, b)
	serverCfg.HandshakeTimeout = 30 * time.Second
	ln, err := Listen("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	silent, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("raw dial: %v", err)
	}
	defer silent.Close()

	accepted := acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	res := waitAccept(t, accepted)
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}
	if s, ok := res.conn.(*Secure); !ok || s.PeerIdentity() != "client-a" {
		t.Fatalf("unexpected accepted conn %T", res.conn)
	}
}

func TestListenerCloseAbortsPendingHandshake(t *testing.T) {
	testlog.Start(t)
	b := tlstest.NewBundle(t, "client-a")
	serverCfg, _ := mutualConfigs(t, b)
	serverCfg.HandshakeTimeout = 30 * time.Second
	ln, err := Listen("127.0.0.1:0", serverCfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	silent, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("raw dial: %v", err)
	}
	defer silent.Close()

	accepted := acceptAsync(ln)
	if err := ln.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if res := waitAccept(t, accepted); !errors.Is(res.err, net.ErrClosed) {
		t.Fatalf("expected net.ErrClosed, got %v", res.err)
	}

	_ = silent.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := silent.Read(make([]byte, 1)); err == nil || isTimeout(err) {
		t.Fatalf("pending handshake conn not closed: %v", err)
	}
}

func TestListenerCloseShutsDownAcceptedConns(t *testing.T) {
	testlog.Start(t)
	ln, err := Listen("127.0.0.1:0", DefaultConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	accepted := acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), DefaultConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	res := waitAccept(t, accepted)
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}

	if err := ln.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := client.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at client, got %v", err)
	}
	if err := res.conn.Send([]byte("late")); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
	if _, err := ln.Accept(); err == nil {
		t.Fatalf("expected accept error after close")
	}
}

func TestShutdownUntracksAcceptedConn(t *testing.T) {
	testlog.Start(t)
	ln, err := Listen("127.0.0.1:0", DefaultConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := acceptAsync(ln)
	client, err := Dial(dialCtx(t), ln.Addr().String(), DefaultConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Shutdown()
	res := waitAccept(t, accepted)
	if res.err != nil {
		t.Fatalf("accept: %v", res.err)
	}

	if err := res.conn.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	ln.mu.Lock()
	tracked := len(ln.conns)
	ln.mu.Unlock()
	if tracked != 0 {
		t.Fatalf("tracked=%d after shutdown", tracked)
	}
}

func TestDialRejectsInvalidClientConfig(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.SecurityMode = SecurityModeProduction
	if _, err := Dial(dialCtx(t), "127.0.0.1:1", cfg); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
}

func TestListenRejectsInvalidServerConfig(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.TLS.Enabled = true
	if _, err := Listen("127.0.0.1:0", cfg); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}
}
