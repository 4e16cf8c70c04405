// Package tcp serves the binary wire protocol over plain and TLS TCP
// listeners, one goroutine per connection, sharing a single dispatcher.
package tcp

import (
	"context"
	"crypto/tls"
	"net"

	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Server accepts connections on a plain or TLS listener and dispatches one
// frame at a time per connection, in request order.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	clients      *clients.Manager
	log          *zap.Logger
	authDisabled bool
}

func NewServer(d *dispatch.Dispatcher, cm *clients.Manager, authDisabled bool, log *zap.Logger) *Server {
	return &Server{dispatcher: d, clients: cm, authDisabled: authDisabled, log: log}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// ServeTLS wraps a plain listener with tls.Config and serves it the same way.
func (s *Server) ServeTLS(ctx context.Context, ln net.Listener, tlsConfig *tls.Config) error {
	return s.Serve(ctx, tls.NewListener(ln, tlsConfig))
}

func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	session := s.clients.Register("tcp", remote, s.authDisabled)
	s.log.Debug("client connected", zap.String("remote", remote), zap.Uint32("client_id", session.ClientID))
	defer func() {
		s.clients.Deregister(session.ClientID)
		conn.Close()
		s.log.Debug("client disconnected", zap.Uint32("client_id", session.ClientID))
	}()

	sender := dispatch.SenderFunc(func(kind wire.Kind, payload []byte) error {
		return wire.WriteReplyFrame(conn, kind, payload)
	})

	for {
		code, payload, err := wire.ReadRequestFrame(conn)
		if err != nil {
			return
		}
		s.dispatcher.Dispatch(session, code, payload, sender)
	}
}
