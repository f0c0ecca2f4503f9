package sock

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/belm0/anyio/scope"
)

type listenConfig struct {
	tlsConf *tls.Config
	mode    os.FileMode
}

// ListenOption configures ListenTCP and ListenUnix.
type ListenOption func(*listenConfig)

// WithTLSServerConfig makes the listener upgrade every accepted connection
// before handing it to the caller.
func WithTLSServerConfig(cfg *tls.Config) ListenOption {
	return func(c *listenConfig) { c.tlsConf = cfg }
}

// WithSocketMode chmods the bound socket file. Unix listeners only.
func WithSocketMode(mode os.FileMode) ListenOption {
	return func(c *listenConfig) { c.mode = mode }
}

// Listener accepts stream connections and wraps each in a Stream.
type Listener struct {
	l       net.Listener
	tlsConf *tls.Config

	closeOnce sync.Once
	closeErr  error
}

// ListenTCP binds iface:port. An empty iface binds every interface; port 0
// picks a free port, readable afterwards from Addr.
func ListenTCP(ctx context.Context, iface string, port int, opts ...ListenOption) (*Listener, error) {
	var cfg listenConfig
	for _, o := range opts {
		o(&cfg)
	}
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", net.JoinHostPort(iface, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return &Listener{l: l, tlsConf: cfg.tlsConf}, nil
}

// ListenUnix binds a stream socket at path, removing a stale socket file
// left behind by an earlier process.
func ListenUnix(ctx context.Context, path string, opts ...ListenOption) (*Listener, error) {
	var cfg listenConfig
	for _, o := range opts {
		o(&cfg)
	}
	if info, err := os.Stat(path); err == nil && info.Mode()&os.ModeSocket != 0 {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	if cfg.mode != 0 {
		if err := os.Chmod(path, cfg.mode); err != nil {
			l.Close()
			return nil, err
		}
	}
	return &Listener{l: l, tlsConf: cfg.tlsConf}, nil
}

// Accept waits for the next connection. When the listener carries a TLS
// configuration the handshake completes before the stream is returned, so
// callers only ever see upgraded streams.
func (ln *Listener) Accept(ctx context.Context) (*Stream, error) {
	finish := guardConn(ctx, ln.l.(deadlineConn))
	conn, err := ln.l.Accept()
	if err = finish(err); err != nil {
		return nil, err
	}
	opts := []StreamOption{WithServerSide()}
	if ln.tlsConf != nil {
		opts = append(opts, WithTLSConfig(ln.tlsConf))
	}
	s := NewStream(conn, opts...)
	if ln.tlsConf != nil {
		if err := s.StartTLS(ctx, nil); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Serve accepts until ctx unwinds, spawning handler as its own task per
// connection and closing the stream when the handler returns. Handler
// failures cancel the remaining connections and surface from Serve.
func (ln *Listener) Serve(ctx context.Context, handler func(ctx context.Context, s *Stream) error) error {
	return scope.RunGroup(ctx, func(ctx context.Context, g *scope.Group) error {
		for {
			s, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			err = g.Spawn("conn "+s.RemoteAddr().String(), func(ctx context.Context) error {
				defer s.Close()
				return handler(ctx, s)
			})
			if err != nil {
				s.Close()
				return err
			}
		}
	})
}

// Addr returns the bound address.
func (ln *Listener) Addr() net.Addr { return ln.l.Addr() }

// Close stops accepting. Safe to call more than once.
func (ln *Listener) Close() error {
	ln.closeOnce.Do(func() { ln.closeErr = ln.l.Close() })
	return ln.closeErr
}
