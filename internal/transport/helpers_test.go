package transport

import (
	"net"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/protocol/frame"
)

func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()
	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server := <-accepted
	if server == nil {
		t.Fatalf("accept failed")
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func mustEncode(t *testing.T, payloads ...string) []byte {
	t.Helper()
	var out []byte
	for _, p := range payloads {
		var err error
		if out, err = frame.AppendEncoded(out, []byte(p)); err != nil {
			t.Fatalf("encode %q: %v", p, err)
		}
	}
	return out
}

// writeAsync writes b on conn from a goroutine; net.Pipe writes block until
// the peer reads.
func writeAsync(conn net.Conn, b []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := conn.Write(b)
		done <- err
	}()
	return done
}

// pollFrames calls TryRecv until it yields frames or a hard error.
func pollFrames(t *testing.T, c NonBlocking, within time.Duration) [][]byte {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		frames, err := c.TryRecv()
		if err == nil {
			return frames
		}
		if !IsWouldBlock(err) {
			t.Fatalf("try recv: %v", err)
		}
	}
	t.Fatalf("no frames within %v", within)
	return nil
}

func waitErr(t *testing.T, ch <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(within):
		t.Fatalf("timed out after %v", within)
		return nil
	}
}

func assertFrames(t *testing.T, got [][]byte, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("frames=%q want %q", got, want)
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Fatalf("frame %d=%q want %q", i, got[i], want[i])
		}
	}
}
