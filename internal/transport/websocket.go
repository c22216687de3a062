package transport

import (
	"context"
	"net"
	"sync"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/stream"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

const wsKind = "websocket"

// wsReadLimit caps one WebSocket message, which may carry several frames.
const wsReadLimit = 1 << 20

// WebSocket frames a binary WebSocket as a byte stream. Frame boundaries
// are independent of WebSocket message boundaries.
//
// Only the Blocking capability is offered: an expired read deadline
// closes the underlying websocket.
type WebSocket struct {
	nc     net.Conn
	stream *stream.Stream
	closed sync.Once
}

var _ Blocking = (*WebSocket)(nil)

// NewWebSocket takes ownership of ws. Cancelling ctx closes it.
func NewWebSocket(ctx context.Context, ws *websocket.Conn) *WebSocket {
	ws.SetReadLimit(wsReadLimit)
	nc := websocket.NetConn(ctx, ws, websocket.MessageBinary)
	w := &WebSocket{nc: nc, stream: stream.New(nc)}
	observability.ConnOpened(wsKind)
	log.Debug().Str("stream", w.stream.ID()).Msg("transport.NewWebSocket")
	return w
}

func (w *WebSocket) Recv() ([]byte, error) {
	p, err := w.stream.Read()
	if err != nil {
		observability.RecordError(wsKind, "recv")
		return nil, err
	}
	observability.RecordFrame(wsKind, observability.DirectionIn, len(p))
	return p, nil
}

func (w *WebSocket) Send(payload []byte) error {
	if err := w.stream.Write(payload); err != nil {
		observability.RecordError(wsKind, "send")
		return err
	}
	observability.RecordFrame(wsKind, observability.DirectionOut, len(payload))
	return nil
}

// Shutdown sends a normal closure and releases the connection.
func (w *WebSocket) Shutdown() error {
	w.closed.Do(func() { observability.ConnClosed(wsKind) })
	return w.stream.Shutdown()
}

func (w *WebSocket) LocalAddr() net.Addr {
	return w.nc.LocalAddr()
}

func (w *WebSocket) RemoteAddr() net.Addr {
	return w.nc.RemoteAddr()
}
