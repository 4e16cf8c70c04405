package quic

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	quicgo "github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/metrics"
	"github.com/ericlarwa/gridline/internal/streaming"
	"github.com/ericlarwa/gridline/internal/wire"
)

// generateTestTLSConfig builds a throwaway self-signed certificate, the way
// quic-go's own examples do, so tests don't depend on files on disk.
func generateTestTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return &tls.Config{Certificates: []tls.Certificate{cert}, NextProtos: []string{"gridline"}}
}

func TestListenDefaultsNextProtos(t *testing.T) {
	cfg := &tls.Config{Certificates: generateTestTLSConfig(t).Certificates}
	require.Empty(t, cfg.NextProtos)
	ln, err := Listen("127.0.0.1:0", cfg, nil)
	require.NoError(t, err)
	defer ln.Close()
	require.Equal(t, []string{"gridline"}, cfg.NextProtos)
}

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	engine, err := streaming.Open(t.TempDir(), streaming.Limits{
		SegmentSizeBytes: 1 << 20, IndexStride: 4096, MaxPartitionBytes: 1 << 30,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	users, err := auth.Open(t.TempDir(), auth.BootstrapConfig{RootUsername: "root", RootPassword: "secret"}, zap.NewNop())
	require.NoError(t, err)
	perm := auth.NewPermissioner(users, true)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	cm := clients.NewManager()
	return dispatch.New(engine, users, perm, tokens, cm, metrics.New(), zap.NewNop())
}

func TestServeDispatchesPingOverStream(t *testing.T) {
	tlsConf := generateTestTLSConfig(t)
	ln, err := Listen("127.0.0.1:0", tlsConf, nil)
	require.NoError(t, err)

	d := newTestDispatcher(t)
	srv := NewServer(d, clients.NewManager(), true, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() { <-done })

	clientTLS := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"gridline"}}
	conn, err := quicgo.DialAddr(ctx, ln.Addr().String(), clientTLS, nil)
	require.NoError(t, err)
	defer conn.CloseWithError(0, "")

	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)

	require.NoError(t, wire.WriteRequestFrame(stream, wire.CodePing, nil))
	status, payload, err := wire.ReadReplyFrame(stream)
	require.NoError(t, err)
	require.Equal(t, wire.KindOK, status)
	require.Empty(t, payload)
}
