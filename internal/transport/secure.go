package transport

import (
	"crypto/tls"
)

// Secure frames a TLS connection. The handshake (and any certificate
// policy) belongs to whoever built the *tls.Conn; Secure only requires that
// it finished.
type Secure struct {
	*framedConn
	tls *tls.Conn
}

var _ Conn = (*Secure)(nil)

func NewSecure(conn *tls.Conn, opts Options) (*Secure, error) {
	if !conn.ConnectionState().HandshakeComplete {
		return nil, ErrHandshakeIncomplete
	}
	return &Secure{framedConn: newFramedConn("secure", conn, opts), tls: conn}, nil
}

func (s *Secure) ConnectionState() tls.ConnectionState {
	return s.tls.ConnectionState()
}

// PeerIdentity names the peer from its leaf certificate, or "" when the
// peer presented none.
func (s *Secure) PeerIdentity() string {
	state := s.tls.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return ""
	}
	return PeerIdentity(state.PeerCertificates[0])
}
