package sock

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belm0/anyio/scope"
)

// selfSignedConfigs generates a throwaway cert for 127.0.0.1/localhost and
// returns matching server and client TLS configurations.
func selfSignedConfigs(t *testing.T) (server, client *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server = &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	}
	client = &tls.Config{RootCAs: pool, ServerName: "localhost"}
	return server, client
}

func TestStartTLSUpgradeAndExchange(t *testing.T) {
	t.Parallel()
	clientStream, serverStream := streamPair(t)
	serverCfg, clientCfg := selfSignedConfigs(t)

	err := scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			if err := serverStream.StartTLS(ctx, serverCfg); err != nil {
				return err
			}
			line, err := serverStream.ReceiveUntil(ctx, []byte("\n"), 1024)
			if err != nil {
				return err
			}
			assert.Equal(t, []byte("secret"), line)
			return serverStream.SendAll(ctx, []byte("ack\n"))
		})
		if err := clientStream.StartTLS(ctx, clientCfg); err != nil {
			return err
		}
		if err := clientStream.SendAll(ctx, []byte("secret\n")); err != nil {
			return err
		}
		line, err := clientStream.ReceiveUntil(ctx, []byte("\n"), 1024)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("ack"), line)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, clientStream.IsTLS())
	assert.True(t, serverStream.IsTLS())
}

func TestStartTLSSecondUpgradeFails(t *testing.T) {
	t.Parallel()
	clientStream, serverStream := streamPair(t)
	serverCfg, clientCfg := selfSignedConfigs(t)

	err := scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			return serverStream.StartTLS(ctx, serverCfg)
		})
		return clientStream.StartTLS(ctx, clientCfg)
	})
	require.NoError(t, err)

	assert.ErrorIs(t, clientStream.StartTLS(context.Background(), clientCfg), ErrAlreadyTLS)
	assert.ErrorIs(t, serverStream.StartTLS(context.Background(), serverCfg), ErrAlreadyTLS)
}

func TestStartTLSUsesStoredConfig(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	serverCfg, clientCfg := selfSignedConfigs(t)

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		conn, err := l.Accept()
		ch <- accepted{conn, err}
	}()
	cc, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	a := <-ch
	require.NoError(t, a.err)

	clientStream := NewStream(cc, WithTLSConfig(clientCfg))
	serverStream := NewStream(a.conn, WithServerSide(), WithTLSConfig(serverCfg))
	defer clientStream.Close()
	defer serverStream.Close()

	err = scope.RunGroup(context.Background(), func(ctx context.Context, g *scope.Group) error {
		g.Spawn("server", func(ctx context.Context) error {
			return serverStream.StartTLS(ctx, nil)
		})
		return clientStream.StartTLS(ctx, nil)
	})
	require.NoError(t, err)
	assert.True(t, clientStream.IsTLS())
}
