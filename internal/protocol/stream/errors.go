package stream

import (
	"errors"
	"fmt"
)

var (
	ErrWriterBroken   = errors.New("stream: writer unusable after earlier failure")
	ErrShutdownFailed = errors.New("stream: shutdown failed")
)

// OpError is a transport failure tagged with the operation in progress.
type OpError struct {
	Op     string
	Stream string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("stream %s %s: %v", e.Op, e.Stream, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// InvariantError reports a bug in the framing state machine itself. It is
// never produced by bad input or a failing transport.
type InvariantError struct {
	Stream string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("stream %s: internal invariant broken: %s", e.Stream, e.Detail)
}

func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
