package sock

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
)

type dialConfig struct {
	useTLS   bool
	tlsConf  *tls.Config
	bindHost string
	bindPort int
}

// DialOption configures ConnectTCP.
type DialOption func(*dialConfig)

// WithTLS upgrades the connection right after connecting, using a default
// client configuration unless WithTLSClientConfig supplies one.
func WithTLS() DialOption {
	return func(c *dialConfig) { c.useTLS = true }
}

// WithTLSClientConfig supplies the TLS client configuration and implies
// WithTLS.
func WithTLSClientConfig(cfg *tls.Config) DialOption {
	return func(c *dialConfig) {
		c.useTLS = true
		c.tlsConf = cfg
	}
}

// WithBind pins the local address the connection is made from. Either part
// may be zero to let the OS choose.
func WithBind(host string, port int) DialOption {
	return func(c *dialConfig) {
		c.bindHost = host
		c.bindPort = port
	}
}

// ConnectTCP dials host:port and returns a connected Stream. With a TLS
// option the handshake runs before the stream is handed back; the host name
// doubles as the expected peer name unless the configuration overrides it.
func ConnectTCP(ctx context.Context, host string, port int, opts ...DialOption) (*Stream, error) {
	var cfg dialConfig
	for _, o := range opts {
		o(&cfg)
	}
	var d net.Dialer
	if cfg.bindHost != "" || cfg.bindPort != 0 {
		d.LocalAddr = &net.TCPAddr{IP: net.ParseIP(cfg.bindHost), Port: cfg.bindPort}
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	s := NewStream(conn, WithServerName(host), WithTLSConfig(cfg.tlsConf))
	if cfg.useTLS {
		if err := s.StartTLS(ctx, cfg.tlsConf); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// ConnectUnix dials a stream socket at path.
func ConnectUnix(ctx context.Context, path string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}
