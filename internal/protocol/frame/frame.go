package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// PrefixLen is the size of the big-endian length field ahead of every payload.
	PrefixLen = 2
	// MaxPayloadLen is the largest payload the length field can describe.
	MaxPayloadLen = 1<<16 - 1
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortPrefix     = errors.New("frame: short length prefix")
)

// Encode returns prefix||payload as one contiguous buffer.
func Encode(payload []byte) ([]byte, error) {
	return AppendEncoded(make([]byte, 0, PrefixLen+len(payload)), payload)
}

// CheckLen reports whether a payload of n bytes fits the length prefix.
func CheckLen(n int) error {
	if n > MaxPayloadLen {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, n, MaxPayloadLen)
	}
	return nil
}

// AppendEncoded appends the wire form of payload to dst.
func AppendEncoded(dst, payload []byte) ([]byte, error) {
	if err := CheckLen(len(payload)); err != nil {
		return dst, err
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...), nil
}

// ReadFrame reads one complete frame from r without keeping any state
// between calls. A clean EOF before the prefix is returned as io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortPrefix
		}
		return nil, err
	}

	payload := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame writes payload to w as a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	buf, err := Encode(payload)
	if err != nil {
		return err
	}
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
