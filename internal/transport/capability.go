package transport

import (
	"errors"
	"net"
	"time"
)

var (
	// ErrWouldBlock means the call could not make progress without
	// blocking. It is not a failure; retry later.
	ErrWouldBlock          = errors.New("transport: operation would block")
	ErrTransportClosed     = errors.New("transport: closed")
	ErrHandshakeIncomplete = errors.New("transport: tls handshake not complete")
)

// Blocking exchanges frames by parking the caller until the operation
// completes or fails.
type Blocking interface {
	// Recv returns exactly one complete frame.
	Recv() ([]byte, error)
	// Send returns once the whole frame has been handed to the transport.
	Send(payload []byte) error
}

// NonBlocking exchanges frames without parking the caller.
type NonBlocking interface {
	// TryRecv returns every frame completed by the bytes currently
	// available, or ErrWouldBlock when there is none.
	TryRecv() ([][]byte, error)
	// TrySend accepts the frame for sending, or returns ErrWouldBlock
	// without accepting it.
	TrySend(payload []byte) error
}

// Conn is a framed connection offering both capability sets.
type Conn interface {
	Blocking
	NonBlocking
	Shutdown() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

// Options tune the non-blocking capability.
type Options struct {
	// PollInterval bounds how long TryRecv waits for bytes already in flight.
	PollInterval time.Duration
	// SendQueueDepth is how many TrySend frames may wait for the writer.
	SendQueueDepth int
}

func DefaultOptions() Options {
	return Options{
		PollInterval:   time.Millisecond,
		SendQueueDepth: 64,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.SendQueueDepth <= 0 {
		o.SendQueueDepth = def.SendQueueDepth
	}
	return o
}
