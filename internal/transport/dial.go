package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// HandshakeError reports a connection dropped during Listener.Accept. The
// listener itself is still usable.
type HandshakeError struct {
	Remote string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("transport: handshake with %s: %v", e.Remote, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Dial connects to addr and returns a Plain or Secure connection depending
// on cfg.TLS.Enabled.
func Dial(ctx context.Context, addr string, cfg Config) (Conn, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if !cfg.TLS.Enabled {
		log.Debug().Str("addr", addr).Msg("transport.Dial plain")
		return NewPlain(rawConn, cfg.Options()), nil
	}

	tlsCfg, err := ClientTLSConfig(cfg, addr)
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	log.Debug().Str("addr", addr).Str("server_name", tlsCfg.ServerName).Msg("transport.Dial secure")
	return NewSecure(conn, cfg.Options())
}

// Listener accepts framed connections and tracks them until they shut
// down, so Close can tear every one of them down.
//
// TLS handshakes run in their own goroutines, so a slow or silent client
// never holds up connections behind it. Accept hands out connections in
// the order their handshakes finish.
type Listener struct {
	ln     net.Listener
	cfg    Config
	tlsCfg *tls.Config

	ctx     context.Context
	cancel  context.CancelFunc
	results chan established
	stopped chan struct{}
	stopErr error

	mu     sync.Mutex
	conns  map[*framedConn]struct{}
	closed bool
}

type established struct {
	conn Conn
	err  error
}

func Listen(addr string, cfg Config) (*Listener, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateServerTransport(); err != nil {
		return nil, err
	}
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		var err error
		if tlsCfg, err = ServerTLSConfig(cfg); err != nil {
			return nil, err
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", ln.Addr().String()).Bool("tls", cfg.TLS.Enabled).Bool("mtls", cfg.requirePeerCert()).Msg("transport.Listen")
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		ln:      ln,
		cfg:     cfg,
		tlsCfg:  tlsCfg,
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan established),
		stopped: make(chan struct{}),
		conns:   make(map[*framedConn]struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept waits for the next connection whose TLS handshake (when enabled)
// has completed. A failed handshake returns *HandshakeError; callers may
// keep accepting. After Close, Accept returns net.ErrClosed.
func (l *Listener) Accept() (Conn, error) {
	select {
	case res := <-l.results:
		if l.ctx.Err() != nil {
			if res.conn != nil {
				_ = res.conn.Shutdown()
			}
			return nil, net.ErrClosed
		}
		return res.conn, res.err
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	case <-l.stopped:
		return nil, l.stopErr
	}
}

func (l *Listener) acceptLoop() {
	defer close(l.stopped)
	for {
		rawConn, err := l.ln.Accept()
		if err != nil {
			l.stopErr = err
			return
		}
		go l.establish(rawConn)
	}
}

// establish frames rawConn and hands the outcome to Accept. Connections
// finished after Close are shut down instead.
func (l *Listener) establish(rawConn net.Conn) {
	var res established
	if l.tlsCfg == nil {
		p := NewPlain(rawConn, l.cfg.Options())
		res.conn, res.err = p, l.track(p.framedConn)
	} else if s, err := l.secure(rawConn); err != nil {
		_ = rawConn.Close()
		remote := rawConn.RemoteAddr().String()
		log.Warn().Str("remote", remote).Err(err).Msg("transport.Listener handshake failed")
		res.err = &HandshakeError{Remote: remote, Err: err}
	} else {
		res.conn, res.err = s, l.track(s.framedConn)
	}
	if res.err != nil && res.conn != nil {
		_ = res.conn.Shutdown()
		res.conn = nil
	}

	select {
	case l.results <- res:
	case <-l.ctx.Done():
		if res.conn != nil {
			_ = res.conn.Shutdown()
		}
	}
}

func (l *Listener) secure(rawConn net.Conn) (*Secure, error) {
	conn := tls.Server(rawConn, l.tlsCfg)
	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	s, err := NewSecure(conn, l.cfg.Options())
	if err != nil {
		return nil, err
	}
	if !l.cfg.requirePeerCert() {
		return s, nil
	}
	if len(conn.ConnectionState().PeerCertificates) == 0 {
		_ = s.Shutdown()
		return nil, ErrMTLSRequired
	}
	if s.PeerIdentity() == "" {
		_ = s.Shutdown()
		return nil, errors.New("transport: empty peer identity from certificate")
	}
	return s, nil
}

// Close stops accepting and shuts down every tracked connection. Failures
// are collected rather than stopping at the first one.
func (l *Listener) Close() error {
	l.cancel()
	l.mu.Lock()
	l.closed = true
	conns := make([]*framedConn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	var result *multierror.Error
	if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		result = multierror.Append(result, err)
	}
	for _, c := range conns {
		if err := c.Shutdown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	log.Debug().Str("addr", l.ln.Addr().String()).Int("conns", len(conns)).Msg("transport.Listener closed")
	return result.ErrorOrNil()
}

func (l *Listener) track(c *framedConn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrTransportClosed
	}
	l.conns[c] = struct{}{}
	c.onShutdown = func() { l.untrack(c) }
	return nil
}

func (l *Listener) untrack(c *framedConn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, c)
}
