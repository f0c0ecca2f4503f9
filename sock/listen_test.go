package sock

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belm0/anyio/scope"
)

func tcpPort(t *testing.T, ln *Listener) int {
	t.Helper()
	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

func TestPingPongEndToEnd(t *testing.T) {
	t.Parallel()
	ln, err := ListenTCP(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()
	port := tcpPort(t, ln)

	err = scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			s, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
			if err != nil {
				return err
			}
			assert.Equal(t, []byte("PING"), line)
			return s.SendAll(ctx, []byte("PONG\n"))
		})

		s, err := ConnectTCP(ctx, "127.0.0.1", port)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SendAll(ctx, []byte("PING\n")); err != nil {
			return err
		}
		line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("PONG"), line)
		return nil
	})
	require.NoError(t, err)
}

func TestServeEcho(t *testing.T) {
	t.Parallel()
	ln, err := ListenTCP(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	port := tcpPort(t, ln)

	echo := func(ctx context.Context, s *Stream) error {
		for {
			line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
			if err != nil {
				return nil // peer went away
			}
			if err := s.SendAll(ctx, append(line, '\n')); err != nil {
				return err
			}
		}
	}

	err = scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("serve", func(ctx context.Context) error {
			if err := ln.Serve(ctx, echo); !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})

		for _, msg := range []string{"one", "two"} {
			s, err := ConnectTCP(ctx, "127.0.0.1", port)
			if err != nil {
				return err
			}
			if err := s.SendAll(ctx, []byte(msg+"\n")); err != nil {
				s.Close()
				return err
			}
			line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
			s.Close()
			if err != nil {
				return err
			}
			assert.Equal(t, []byte(msg), line)
		}
		return ln.Close()
	})
	require.NoError(t, err)
}

func TestAcceptCancelled(t *testing.T) {
	t.Parallel()
	ln, err := ListenTCP(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	start := time.Now()
	err = scope.FailAfter(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		_, err := ln.Accept(ctx)
		return err
	})
	assert.ErrorIs(t, err, scope.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestListenTLSAcceptReturnsUpgradedStream(t *testing.T) {
	t.Parallel()
	serverCfg, clientCfg := selfSignedConfigs(t)
	ln, err := ListenTCP(context.Background(), "127.0.0.1", 0, WithTLSServerConfig(serverCfg))
	require.NoError(t, err)
	defer ln.Close()
	port := tcpPort(t, ln)

	err = scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			s, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			assert.True(t, s.IsTLS())
			line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
			if err != nil {
				return err
			}
			return s.SendAll(ctx, append(line, '\n'))
		})

		s, err := ConnectTCP(ctx, "127.0.0.1", port, WithTLSClientConfig(clientCfg))
		if err != nil {
			return err
		}
		defer s.Close()
		assert.True(t, s.IsTLS())
		if err := s.SendAll(ctx, []byte("over tls\n")); err != nil {
			return err
		}
		line, err := s.ReceiveUntil(ctx, []byte("\n"), 1024)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("over tls"), line)
		return nil
	})
	require.NoError(t, err)
}

func TestUnixSocketRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "echo.sock")
	ln, err := ListenUnix(context.Background(), path, WithSocketMode(0o600))
	require.NoError(t, err)
	defer ln.Close()

	err = scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			s, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			line, err := s.ReceiveUntil(ctx, []byte("\n"), 64)
			if err != nil {
				return err
			}
			return s.SendAll(ctx, append(line, '\n'))
		})

		s, err := ConnectUnix(ctx, path)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.SendAll(ctx, []byte("local\n")); err != nil {
			return err
		}
		line, err := s.ReceiveUntil(ctx, []byte("\n"), 64)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("local"), line)
		return nil
	})
	require.NoError(t, err)
}

func TestListenUnixReplacesStaleSocket(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stale.sock")
	// Leave a socket file behind without a listener, as a crashed process
	// would.
	raw, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	require.NoError(t, err)
	raw.SetUnlinkOnClose(false)
	require.NoError(t, raw.Close())

	ln, err := ListenUnix(context.Background(), path)
	require.NoError(t, err)
	assert.NoError(t, ln.Close())
}
