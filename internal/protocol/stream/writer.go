package stream

import (
	"fmt"
	"io"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

type flusher interface {
	Flush() error
}

// Writer is the sending role of a framed connection.
type Writer struct {
	id   string
	conn Conn
	err  error
}

func newWriter(id string, conn Conn) *Writer {
	return &Writer{id: id, conn: conn}
}

func (w *Writer) ID() string {
	return w.id
}

// Write sends payload as one frame and flushes the connection if it
// buffers. Payloads over frame.MaxPayloadLen are rejected before anything is
// sent. After a failed write part of a frame may have reached the peer, so
// every later Write fails with ErrWriterBroken.
func (w *Writer) Write(payload []byte) error {
	if w.err != nil {
		return &OpError{Op: "write", Stream: w.id, Err: fmt.Errorf("%w: %w", ErrWriterBroken, w.err)}
	}
	buf, err := frame.Encode(payload)
	if err != nil {
		return &OpError{Op: "write", Stream: w.id, Err: err}
	}
	if err := writeFull(w.conn, buf); err != nil {
		return w.fail(err)
	}
	if f, ok := w.conn.(flusher); ok {
		if err := f.Flush(); err != nil {
			return w.fail(err)
		}
	}
	log.Trace().Str("stream", w.id).Int("len", len(payload)).Msg("stream.Write frame")
	return nil
}

func (w *Writer) Shutdown() error {
	return shutdown(w.id, w.conn)
}

func (w *Writer) fail(err error) error {
	w.err = err
	log.Debug().Str("stream", w.id).Err(err).Msg("stream.Write failed")
	return &OpError{Op: "write", Stream: w.id, Err: err}
}

// writeFull repeats short writes until p is sent.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
