package sock

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
)

type udpConfig struct {
	bindHost   string
	bindPort   int
	targetHost string
	targetPort int
}

// UDPOption configures NewUDPSocket.
type UDPOption func(*udpConfig)

// WithBindAddr pins the local address the socket binds to.
func WithBindAddr(host string, port int) UDPOption {
	return func(c *udpConfig) {
		c.bindHost = host
		c.bindPort = port
	}
}

// WithTarget connects the socket to a fixed remote, enabling Send and
// restricting Receive to datagrams from that peer.
func WithTarget(host string, port int) UDPOption {
	return func(c *udpConfig) {
		c.targetHost = host
		c.targetPort = port
	}
}

// UDPSocket is a datagram endpoint. With a target it behaves as a
// connected socket (Send/Receive against one peer); without, it is
// unconnected and addresses travel per datagram (SendTo, Receive's addr).
type UDPSocket struct {
	conn      *net.UDPConn
	connected bool

	closeOnce sync.Once
	closeErr  error
}

// NewUDPSocket binds (and optionally connects) a datagram socket.
func NewUDPSocket(ctx context.Context, opts ...UDPOption) (*UDPSocket, error) {
	var cfg udpConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.targetHost != "" || cfg.targetPort != 0 {
		var d net.Dialer
		if cfg.bindHost != "" || cfg.bindPort != 0 {
			d.LocalAddr = &net.UDPAddr{IP: net.ParseIP(cfg.bindHost), Port: cfg.bindPort}
		}
		conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(cfg.targetHost, strconv.Itoa(cfg.targetPort)))
		if err != nil {
			return nil, err
		}
		return &UDPSocket{conn: conn.(*net.UDPConn), connected: true}, nil
	}
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(cfg.bindHost, strconv.Itoa(cfg.bindPort)))
	if err != nil {
		return nil, err
	}
	return &UDPSocket{conn: pc.(*net.UDPConn)}, nil
}

// Receive waits for one datagram of at most maxBytes and reports the
// sender's address.
func (u *UDPSocket) Receive(ctx context.Context, maxBytes int) ([]byte, net.Addr, error) {
	if maxBytes <= 0 {
		maxBytes = defaultReceiveSize
	}
	buf := make([]byte, maxBytes)
	finish := guardConn(ctx, u.conn)
	var (
		n    int
		addr net.Addr
		err  error
	)
	if u.connected {
		n, err = u.conn.Read(buf)
		addr = u.conn.RemoteAddr()
	} else {
		n, addr, err = u.conn.ReadFromUDP(buf)
	}
	if err = finish(err); err != nil {
		return nil, nil, err
	}
	return buf[:n], addr, nil
}

// Send transmits one datagram to the connected target.
func (u *UDPSocket) Send(ctx context.Context, data []byte) error {
	if !u.connected {
		return errors.New("sock: Send on unconnected UDP socket, use SendTo")
	}
	finish := guardConn(ctx, u.conn)
	_, err := u.conn.Write(data)
	return finish(err)
}

// SendTo transmits one datagram to addr. Unconnected sockets only.
func (u *UDPSocket) SendTo(ctx context.Context, data []byte, addr net.Addr) error {
	if u.connected {
		return errors.New("sock: SendTo on connected UDP socket, use Send")
	}
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return errors.New("sock: SendTo needs a *net.UDPAddr")
	}
	finish := guardConn(ctx, u.conn)
	_, err := u.conn.WriteToUDP(data, ua)
	return finish(err)
}

// LocalAddr returns the bound address.
func (u *UDPSocket) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// Close closes the socket. Safe to call more than once.
func (u *UDPSocket) Close() error {
	u.closeOnce.Do(func() { u.closeErr = u.conn.Close() })
	return u.closeErr
}
