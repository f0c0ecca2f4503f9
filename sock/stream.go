package sock

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"
)

// defaultReceiveSize bounds a single read when the caller does not care.
const defaultReceiveSize = 65536

// aLongTimeAgo is a non-zero deadline in the past, used to kick blocked
// connection I/O when a context unwinds.
var aLongTimeAgo = time.Unix(1, 0)

// Stream is a buffered byte stream over a connected socket. All receive and
// send operations take a context and unblock when it unwinds. A Stream is
// not safe for concurrent use of the same direction; one reader plus one
// writer is fine.
type Stream struct {
	mu         sync.Mutex
	conn       net.Conn
	tlsConf    *tls.Config
	serverName string
	serverSide bool
	isTLS      bool

	closeOnce sync.Once
	closeErr  error
}

// StreamOption configures a Stream at adoption time.
type StreamOption func(*Stream)

// WithTLSConfig stores a TLS configuration for a later StartTLS call.
func WithTLSConfig(cfg *tls.Config) StreamOption {
	return func(s *Stream) { s.tlsConf = cfg }
}

// WithServerName sets the expected peer name used when StartTLS runs the
// client side of the handshake.
func WithServerName(name string) StreamOption {
	return func(s *Stream) { s.serverName = name }
}

// WithServerSide marks the stream as the accepting side, so StartTLS runs
// the server half of the handshake.
func WithServerSide() StreamOption {
	return func(s *Stream) { s.serverSide = true }
}

// NewStream adopts an already connected endpoint. It is the adoption point
// for sockets created outside this package: a dialed or accepted net.Conn,
// or one built directly on a file descriptor, gets wrapped here rather than
// through a dedicated constructor. The stream owns conn from here on and
// closes it exactly once.
func NewStream(conn net.Conn, opts ...StreamOption) *Stream {
	s := &Stream{conn: conn}
	for _, o := range opts {
		o(s)
	}
	if _, ok := conn.(*tls.Conn); ok {
		s.isTLS = true
	}
	return s
}

// transport returns the current underlying connection.
func (s *Stream) transport() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// deadlineConn is the handle subset that supports deadline kicks.
type deadlineConn interface {
	SetDeadline(t time.Time) error
}

// guardConn arms a watchdog that poisons the handle's deadline when ctx
// unwinds, so a blocked operation returns promptly. The returned finish
// func must be called exactly once; it maps a deadline error back to the
// context's cancellation cause.
func guardConn(ctx context.Context, c deadlineConn) func(error) error {
	if ctx.Done() == nil {
		return func(err error) error { return err }
	}
	stop := make(chan struct{})
	parked := make(chan struct{})
	go func() {
		defer close(parked)
		select {
		case <-ctx.Done():
			c.SetDeadline(aLongTimeAgo)
		case <-stop:
		}
	}()
	return func(err error) error {
		close(stop)
		<-parked
		if ctx.Err() != nil {
			c.SetDeadline(time.Time{})
			return context.Cause(ctx)
		}
		return err
	}
}

func (s *Stream) guard(ctx context.Context) func(error) error {
	return guardConn(ctx, s.transport())
}

// ReceiveSome performs a single read and returns whatever is immediately
// available, at most maxBytes. A closed peer surfaces as io.EOF.
func (s *Stream) ReceiveSome(ctx context.Context, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = defaultReceiveSize
	}
	buf := make([]byte, maxBytes)
	finish := s.guard(ctx)
	n, err := s.transport().Read(buf)
	err = finish(err)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// ReceiveExactly reads until exactly n bytes have accumulated. It never
// returns fewer bytes without an error; a peer that closes early surfaces
// as io.ErrUnexpectedEOF.
func (s *Stream) ReceiveExactly(ctx context.Context, n int) ([]byte, error) {
	buf := make([]byte, n)
	finish := s.guard(ctx)
	_, err := io.ReadFull(s.transport(), buf)
	if err = finish(err); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("sock: receive exactly %d bytes: %w", n, err)
	}
	return buf, nil
}

// SendAll writes until the full payload has been accepted by the socket,
// looping over partial writes.
func (s *Stream) SendAll(ctx context.Context, data []byte) error {
	finish := s.guard(ctx)
	conn := s.transport()
	for sent := 0; sent < len(data); {
		n, err := conn.Write(data[sent:])
		if err != nil {
			return finish(err)
		}
		if n == 0 {
			return finish(io.ErrShortWrite)
		}
		sent += n
	}
	return finish(nil)
}

// StartTLS upgrades the stream to an encrypted transport using cfg, or the
// configuration given at construction, or an empty one. The side of the
// handshake follows how the stream was created: dialed streams run the
// client half, accepted streams the server half. A second upgrade fails
// with ErrAlreadyTLS.
func (s *Stream) StartTLS(ctx context.Context, cfg *tls.Config) error {
	s.mu.Lock()
	if s.isTLS {
		s.mu.Unlock()
		return ErrAlreadyTLS
	}
	if cfg == nil {
		cfg = s.tlsConf
	}
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg = cfg.Clone()
	if !s.serverSide && cfg.ServerName == "" {
		cfg.ServerName = s.serverName
	}
	var tc *tls.Conn
	if s.serverSide {
		tc = tls.Server(s.conn, cfg)
	} else {
		tc = tls.Client(s.conn, cfg)
	}
	s.mu.Unlock()

	if err := tc.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("sock: TLS handshake: %w", err)
	}
	s.mu.Lock()
	s.conn = tc
	s.isTLS = true
	s.mu.Unlock()
	return nil
}

// IsTLS reports whether the stream has been upgraded.
func (s *Stream) IsTLS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isTLS
}

// Close closes the underlying socket. Safe to call more than once; later
// calls return the first result.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport().Close()
	})
	return s.closeErr
}

// LocalAddr returns the local endpoint address.
func (s *Stream) LocalAddr() net.Addr { return s.transport().LocalAddr() }

// RemoteAddr returns the peer's address.
func (s *Stream) RemoteAddr() net.Addr { return s.transport().RemoteAddr() }

// syscallConn exposes the raw descriptor for non-destructive peeking. It is
// unavailable once TLS framing hides the plaintext byte positions.
func (s *Stream) syscallConn() (syscall.RawConn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isTLS {
		return nil, false
	}
	sc, ok := s.conn.(syscall.Conn)
	if !ok {
		return nil, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return rc, true
}
