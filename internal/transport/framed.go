package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/stream"
	"github.com/rs/zerolog/log"
)

// framedConn carries both capability sets for any net.Conn whose read
// deadlines are recoverable. Plain and Secure differ only in construction.
//
// Like stream.Stream it expects one receiving and one sending context.
type framedConn struct {
	kind   string
	conn   net.Conn
	stream *stream.Stream
	opts   Options

	mu         sync.Mutex
	out        *outbox
	closed     bool
	onShutdown func()
}

func newFramedConn(kind string, conn net.Conn, opts Options) *framedConn {
	observability.ConnOpened(kind)
	return &framedConn{
		kind:   kind,
		conn:   conn,
		stream: stream.New(conn),
		opts:   opts.withDefaults(),
	}
}

func (c *framedConn) Recv() ([]byte, error) {
	p, err := c.stream.Read()
	if err != nil {
		observability.RecordError(c.kind, "recv")
		return nil, err
	}
	observability.RecordFrame(c.kind, observability.DirectionIn, len(p))
	return p, nil
}

// Send writes directly until TrySend has started the send queue; from then
// on it queues behind earlier frames and waits for its own result.
func (c *framedConn) Send(payload []byte) error {
	c.mu.Lock()
	o, closed := c.out, c.closed
	c.mu.Unlock()
	if o != nil {
		return o.send(payload)
	}
	if closed {
		return ErrTransportClosed
	}
	if err := c.stream.Write(payload); err != nil {
		observability.RecordError(c.kind, "send")
		return err
	}
	observability.RecordFrame(c.kind, observability.DirectionOut, len(payload))
	return nil
}

// TryRecv polls for PollInterval and returns every frame that completed.
// A connection that cannot take a read deadline (net.Pipe after either end
// closed, for one) fails with a read OpError wrapping the deadline error.
func (c *framedConn) TryRecv() ([][]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PollInterval)); err != nil {
		observability.RecordError(c.kind, "try_recv")
		return nil, &stream.OpError{Op: "read", Stream: c.stream.ID(), Err: err}
	}
	frames, err := c.stream.ReadAvailable()
	_ = c.conn.SetReadDeadline(time.Time{})
	for _, f := range frames {
		observability.RecordFrame(c.kind, observability.DirectionIn, len(f))
	}
	if err != nil && !isTimeout(err) {
		observability.RecordError(c.kind, "try_recv")
		return frames, err
	}
	if len(frames) == 0 {
		observability.RecordWouldBlock(c.kind, "try_recv")
		return nil, ErrWouldBlock
	}
	return frames, nil
}

func (c *framedConn) TrySend(payload []byte) error {
	if err := frame.CheckLen(len(payload)); err != nil {
		return &stream.OpError{Op: "write", Stream: c.stream.ID(), Err: err}
	}
	o, err := c.sendQueue()
	if err != nil {
		return err
	}
	err = o.offer(append([]byte(nil), payload...))
	if IsWouldBlock(err) {
		observability.RecordWouldBlock(c.kind, "try_send")
	}
	return err
}

// Shutdown stops the send queue, dropping frames it has not written, and
// closes the connection in both directions.
func (c *framedConn) Shutdown() error {
	c.mu.Lock()
	o, wasClosed := c.out, c.closed
	c.closed = true
	c.mu.Unlock()
	if !wasClosed {
		observability.ConnClosed(c.kind)
	}

	if o != nil {
		o.stop()
	}
	err := c.stream.Shutdown()
	if o != nil {
		o.wait()
	}
	if c.onShutdown != nil {
		c.onShutdown()
	}
	return err
}

func (c *framedConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *framedConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *framedConn) sendQueue() (*outbox, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrTransportClosed
	}
	if c.out == nil {
		c.out = newOutbox(c.kind, c.stream, c.opts.SendQueueDepth)
		log.Debug().Str("stream", c.stream.ID()).Int("depth", c.opts.SendQueueDepth).Msg("transport.outbox started")
	}
	return c.out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
