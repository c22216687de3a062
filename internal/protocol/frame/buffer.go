package frame

import (
	"encoding/binary"
	"errors"
)

var (
	ErrBufferOverflow = errors.New("frame: push beyond current phase capacity")
	ErrLengthNotReady = errors.New("frame: length prefix incomplete")
)

// Buffer accumulates raw bytes for one phase at a time (length prefix, then
// payload) and queues each completed payload until it is drained.
//
// The accumulator never grows past the phase capacity; callers ask
// Remaining before pushing.
type Buffer struct {
	acc      []byte
	capacity int
	done     [][]byte
}

func NewBuffer() *Buffer {
	return &Buffer{
		acc:      make([]byte, 0, PrefixLen),
		capacity: PrefixLen,
	}
}

// Remaining reports how many bytes the current phase still needs.
func (b *Buffer) Remaining() int {
	return b.capacity - len(b.acc)
}

func (b *Buffer) Push(c byte) error {
	if b.Remaining() == 0 {
		return ErrBufferOverflow
	}
	b.acc = append(b.acc, c)
	return nil
}

// Append pushes all of p, or nothing if p does not fit in the current phase.
func (b *Buffer) Append(p []byte) error {
	if len(p) > b.Remaining() {
		return ErrBufferOverflow
	}
	b.acc = append(b.acc, p...)
	return nil
}

// Contents is a view of the accumulator; it is only valid until the next
// mutation.
func (b *Buffer) Contents() []byte {
	return b.acc
}

func (b *Buffer) DecodeLength() (uint16, error) {
	if len(b.acc) != PrefixLen {
		return 0, ErrLengthNotReady
	}
	return binary.BigEndian.Uint16(b.acc), nil
}

// SetCapacity starts a new phase that needs n bytes.
func (b *Buffer) SetCapacity(n int) {
	b.capacity = n
	if cap(b.acc) < n {
		b.acc = make([]byte, 0, n)
		return
	}
	b.acc = b.acc[:0]
}

// Complete queues the accumulator as one frame and rearms for a length prefix.
func (b *Buffer) Complete() {
	payload := make([]byte, len(b.acc))
	copy(payload, b.acc)
	b.done = append(b.done, payload)
	b.acc = b.acc[:0]
	b.capacity = PrefixLen
}

// Drain hands over every queued frame in arrival order.
func (b *Buffer) Drain() [][]byte {
	out := b.done
	b.done = nil
	return out
}

func (b *Buffer) Queued() int {
	return len(b.done)
}
