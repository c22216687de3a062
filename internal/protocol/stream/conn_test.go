package stream

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// scriptedConn replays fixed read chunks. A chunk is never merged with the
// next one, so callers see exactly the fragmentation under test.
type scriptedConn struct {
	steps []step
	step  int
	off   int
	asks  []int

	wrote bytes.Buffer
	// maxWrite caps bytes accepted per Write; zero means unlimited.
	maxWrite int
	writeErr error
	flushes  int
	closeErr error
	closed   int
}

type step struct {
	b   []byte
	err error
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	c.asks = append(c.asks, len(p))
	for {
		if c.step >= len(c.steps) {
			return 0, io.EOF
		}
		st := c.steps[c.step]
		if c.off >= len(st.b) {
			c.step++
			c.off = 0
			if len(st.b) == 0 || st.err != nil {
				return 0, st.err
			}
			continue
		}
		n := copy(p, st.b[c.off:])
		c.off += n
		if c.off == len(st.b) && st.err != nil {
			c.step++
			c.off = 0
			return n, st.err
		}
		return n, nil
	}
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.maxWrite > 0 && len(p) > c.maxWrite {
		p = p[:c.maxWrite]
	}
	return c.wrote.Write(p)
}

func (c *scriptedConn) Close() error {
	c.closed++
	return c.closeErr
}

type flushConn struct {
	scriptedConn
}

func (c *flushConn) Flush() error {
	c.flushes++
	return nil
}

func chunks(parts ...[]byte) []step {
	out := make([]step, 0, len(parts))
	for _, p := range parts {
		out = append(out, step{b: p})
	}
	return out
}

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

func assertOp(t *testing.T, err error, op string, target error) {
	t.Helper()
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OpError, got %T %v", err, err)
	}
	if oe.Op != op {
		t.Fatalf("op=%q want %q", oe.Op, op)
	}
	if target != nil && !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
