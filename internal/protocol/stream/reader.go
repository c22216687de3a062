package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

type readState uint8

const (
	awaitingLength readState = iota
	awaitingPayload
)

func (s readState) String() string {
	if s == awaitingPayload {
		return "awaiting_payload"
	}
	return "awaiting_length"
}

// readChunk bounds a single ReadAvailable call: one maximal frame.
const readChunk = frame.PrefixLen + frame.MaxPayloadLen

// Reader is the receiving role of a framed connection.
type Reader struct {
	id      string
	conn    Conn
	buf     *frame.Buffer
	state   readState
	scratch []byte
	err     error
}

func newReader(id string, conn Conn) *Reader {
	return &Reader{
		id:    id,
		conn:  conn,
		buf:   frame.NewBuffer(),
		state: awaitingLength,
	}
}

func (r *Reader) ID() string {
	return r.id
}

// Read blocks until one complete frame has arrived.
//
// Each transport read asks for no more than the current phase still needs,
// so bytes of the next frame are never consumed. A connection closed before
// the frame completes yields io.ErrUnexpectedEOF; closed between frames,
// io.EOF. Closing the connection from another goroutine unblocks Read.
func (r *Reader) Read() ([]byte, error) {
	for {
		if err := r.takeErr(); err != nil {
			return nil, err
		}
		n, err := r.conn.Read(r.chunk(r.buf.Remaining()))
		completed, ferr := r.feed(r.scratch[:n])
		if ferr != nil {
			return nil, ferr
		}
		if err != nil {
			r.err = err
		} else if n == 0 {
			r.err = io.ErrNoProgress
		}
		if completed > 0 {
			break
		}
	}

	frames := r.buf.Drain()
	if len(frames) != 1 {
		return nil, &InvariantError{
			Stream: r.id,
			Detail: fmt.Sprintf("read drained %d frames, want 1", len(frames)),
		}
	}
	log.Trace().Str("stream", r.id).Int("len", len(frames[0])).Msg("stream.Read frame")
	return frames[0], nil
}

// ReadAvailable performs one transport read of up to one maximal frame and
// returns every frame those bytes completed, in order. Partial frames stay
// buffered for the next call. Frames and an error may be returned together.
func (r *Reader) ReadAvailable() ([][]byte, error) {
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	n, err := r.conn.Read(r.chunk(readChunk))
	if _, ferr := r.feed(r.scratch[:n]); ferr != nil {
		return nil, ferr
	}
	frames := r.buf.Drain()
	if len(frames) > 0 {
		log.Trace().Str("stream", r.id).Int("frames", len(frames)).Msg("stream.ReadAvailable")
	}
	if err != nil {
		r.err = err
		return frames, r.takeErr()
	}
	if n == 0 && len(frames) == 0 {
		r.err = io.ErrNoProgress
		return nil, r.takeErr()
	}
	return frames, nil
}

func (r *Reader) Shutdown() error {
	return shutdown(r.id, r.conn)
}

// feed pushes p through the state machine and reports how many frames it
// completed.
func (r *Reader) feed(p []byte) (int, error) {
	completed := 0
	for len(p) > 0 {
		n := min(len(p), r.buf.Remaining())
		if err := r.buf.Append(p[:n]); err != nil {
			return completed, &InvariantError{Stream: r.id, Detail: err.Error()}
		}
		p = p[n:]
		done, err := r.advance()
		if err != nil {
			return completed, err
		}
		if done {
			completed++
		}
	}
	return completed, nil
}

// advance applies phase transitions while the current phase is full.
// A zero length prefix completes its (empty) payload phase immediately.
func (r *Reader) advance() (bool, error) {
	for r.buf.Remaining() == 0 {
		switch r.state {
		case awaitingLength:
			n, err := r.buf.DecodeLength()
			if err != nil {
				return false, &InvariantError{Stream: r.id, Detail: err.Error()}
			}
			r.buf.SetCapacity(int(n))
			r.state = awaitingPayload
		case awaitingPayload:
			r.buf.Complete()
			r.state = awaitingLength
			return true, nil
		}
	}
	return false, nil
}

func (r *Reader) chunk(n int) []byte {
	if cap(r.scratch) < n {
		r.scratch = make([]byte, n)
	}
	return r.scratch[:n]
}

// takeErr returns the pending transport error, if any, tagged for the
// caller. EOF inside a frame is reported as io.ErrUnexpectedEOF.
func (r *Reader) takeErr() error {
	err := r.err
	if err == nil {
		return nil
	}
	r.err = nil
	if errors.Is(err, io.EOF) && r.midFrame() {
		err = io.ErrUnexpectedEOF
	}
	log.Trace().Str("stream", r.id).Str("state", r.state.String()).Err(err).Msg("stream.Read failed")
	return &OpError{Op: "read", Stream: r.id, Err: err}
}

func (r *Reader) midFrame() bool {
	return r.state == awaitingPayload || len(r.buf.Contents()) > 0
}
