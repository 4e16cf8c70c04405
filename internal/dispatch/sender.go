// Package dispatch turns a decoded wire.Command into calls against the
// streaming engine, the user store and the permissioner, independent of
// which transport received the request.
package dispatch

import "github.com/ericlarwa/gridline/internal/wire"

// Sender is the transport-neutral reply capability every transport
// implements: a TCP/QUIC connection writes a reply frame, the HTTP
// transport maps the same (kind, payload) pair onto a status code and a
// JSON body.
type Sender interface {
	Reply(kind wire.Kind, payload []byte) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(kind wire.Kind, payload []byte) error

func (f SenderFunc) Reply(kind wire.Kind, payload []byte) error { return f(kind, payload) }
