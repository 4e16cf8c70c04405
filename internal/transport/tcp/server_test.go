package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/metrics"
	"github.com/ericlarwa/gridline/internal/streaming"
	"github.com/ericlarwa/gridline/internal/wire"
)

func newTestServer(t *testing.T) (*Server, net.Listener) {
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
	d := dispatch.New(engine, users, perm, tokens, cm, metrics.New(), zap.NewNop())

	srv := NewServer(d, cm, true, zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return srv, ln
}

func runServer(t *testing.T, srv *Server, ln net.Listener) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestServeDispatchesPing(t *testing.T) {
	srv, ln := newTestServer(t)
	runServer(t, srv, ln)

	c, err := Dial(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	payload, err := c.Call(wire.Ping{})
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestServeCreateAndListStream(t *testing.T) {
	srv, ln := newTestServer(t)
	runServer(t, srv, ln)

	c, err := Dial(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Call(wire.CreateStream{StreamID: 1, Name: "orders"})
	require.NoError(t, err)

	payload, err := c.Call(wire.GetStreams{})
	require.NoError(t, err)
	require.Contains(t, string(payload), "orders")
}

func TestServeDeleteUnknownStreamReturnsNotFound(t *testing.T) {
	srv, ln := newTestServer(t)
	runServer(t, srv, ln)

	c, err := Dial(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Call(wire.DeleteStream{StreamID: id.Numeric(404)})
	require.Error(t, err)
	werr := wire.As(err)
	require.Equal(t, wire.KindStreamNotFound, werr.Kind)
}
