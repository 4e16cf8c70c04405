// Package quic serves the binary wire protocol over QUIC. Like the TCP
// transport, each connection carries frames in order on one long-lived
// bidirectional stream: the first stream the client opens. Further streams
// on the same connection are not accepted.
package quic

import (
	"context"
	"crypto/tls"

	quicgo "github.com/quic-go/quic-go"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Server accepts QUIC connections and dispatches frames read off the first
// stream each connection opens.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	clients      *clients.Manager
	log          *zap.Logger
	authDisabled bool
}

func NewServer(d *dispatch.Dispatcher, cm *clients.Manager, authDisabled bool, log *zap.Logger) *Server {
	return &Server{dispatcher: d, clients: cm, authDisabled: authDisabled, log: log}
}

// Listen opens a UDP-backed QUIC listener at addr with the given TLS config
// and application-level ALPN, ready for Serve.
func Listen(addr string, tlsConfig *tls.Config, quicConfig *quicgo.Config) (*quicgo.Listener, error) {
	if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{"gridline"}
	}
	return quicgo.ListenAddr(addr, tlsConfig, quicConfig)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln *quicgo.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn quicgo.Connection) {
	remote := conn.RemoteAddr().String()
	session := s.clients.Register("quic", remote, s.authDisabled)
	s.log.Debug("client connected", zap.String("remote", remote), zap.Uint32("client_id", session.ClientID))
	defer s.clients.Deregister(session.ClientID)

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return
	}
	defer stream.Close()

	sender := dispatch.SenderFunc(func(kind wire.Kind, payload []byte) error {
		return wire.WriteReplyFrame(stream, kind, payload)
	})

	for {
		code, payload, err := wire.ReadRequestFrame(stream)
		if err != nil {
			return
		}
		s.dispatcher.Dispatch(session, code, payload, sender)
	}
}
