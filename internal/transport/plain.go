package transport

import "net"

// Plain frames an established TCP-like connection.
type Plain struct {
	*framedConn
}

var _ Conn = (*Plain)(nil)

func NewPlain(conn net.Conn, opts Options) *Plain {
	return &Plain{framedConn: newFramedConn("plain", conn, opts)}
}
