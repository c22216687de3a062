package stream

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Conn is the connected byte stream a Stream frames. Close must shut down
// both directions and unblock pending reads.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Stream is a framed connection with one reader and one writer role.
type Stream struct {
	id   string
	conn Conn
	r    *Reader
	w    *Writer
}

// New frames an already-connected conn.
func New(conn Conn) *Stream {
	id := uuid.NewString()
	return &Stream{
		id:   id,
		conn: conn,
		r:    newReader(id, conn),
		w:    newWriter(id, conn),
	}
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) Read() ([]byte, error) {
	return s.r.Read()
}

func (s *Stream) ReadAvailable() ([][]byte, error) {
	return s.r.ReadAvailable()
}

func (s *Stream) Write(payload []byte) error {
	return s.w.Write(payload)
}

// Shutdown closes both directions of the connection for this stream and
// every duplicate. Shutting down an already closed connection is a no-op.
func (s *Stream) Shutdown() error {
	return shutdown(s.id, s.conn)
}

// Duplicate returns a new Stream on the same connection with empty framing
// state. The caller keeps at most one of them reading at a time.
func (s *Stream) Duplicate() *Stream {
	d := New(s.conn)
	log.Debug().Str("stream", s.id).Str("duplicate", d.id).Msg("stream.Duplicate")
	return d
}

// Split duplicates the stream into a reader role and a writer role that can
// run in different goroutines. Both start with empty framing state; s must
// not be read from afterwards.
func (s *Stream) Split() (*Reader, *Writer) {
	d := s.Duplicate()
	return d.r, d.w
}

func shutdown(id string, conn Conn) error {
	err := conn.Close()
	if err == nil || errors.Is(err, net.ErrClosed) {
		log.Debug().Str("stream", id).Msg("stream.Shutdown")
		return nil
	}
	log.Error().Str("stream", id).Err(err).Msg("stream.Shutdown failed")
	return &OpError{Op: "shutdown", Stream: id, Err: fmt.Errorf("%w: %w", ErrShutdownFailed, err)}
}
