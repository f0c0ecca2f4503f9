//go:build unix

package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belm0/anyio/scope"
)

func loopbackPair(t *testing.T) (client, server *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err == nil {
			server = c.(*net.TCPConn)
		}
	}()
	c, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	client = c.(*net.TCPConn)
	<-done
	require.NotNil(t, server)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestWaitReadableBlocksUntilData(t *testing.T) {
	t.Parallel()
	client, server := loopbackPair(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		server.Write([]byte("x"))
	}()
	start := time.Now()
	err := WaitReadable(context.Background(), client)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	buf := make([]byte, 1)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWaitReadableCancelled(t *testing.T) {
	t.Parallel()
	client, _ := loopbackPair(t)

	err := scope.FailAfter(context.Background(), 30*time.Millisecond, func(ctx context.Context) error {
		return WaitReadable(ctx, client)
	})
	assert.ErrorIs(t, err, scope.ErrTimeout)
}

func TestWaitWritableImmediate(t *testing.T) {
	t.Parallel()
	client, _ := loopbackPair(t)

	start := time.Now()
	require.NoError(t, WaitWritable(context.Background(), client))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReadableSeesPeerClose(t *testing.T) {
	t.Parallel()
	client, server := loopbackPair(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		server.Close()
	}()
	require.NoError(t, WaitReadable(context.Background(), client))
}
