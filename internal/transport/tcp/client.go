package tcp

import (
	"net"
	"time"

	"github.com/ericlarwa/gridline/internal/wire"
)

// Client is a minimal synchronous request/reply client over the binary
// protocol, used by the CLI instead of hand-rolling frame I/O at every
// call site.
type Client struct {
	conn net.Conn
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Call writes cmd as a request frame and returns the reply payload, or an
// error built from a non-OK reply status.
func (c *Client) Call(cmd wire.Command) ([]byte, error) {
	if err := wire.WriteRequestFrame(c.conn, cmd.Code(), cmd.Encode()); err != nil {
		return nil, err
	}
	status, payload, err := wire.ReadReplyFrame(c.conn)
	if err != nil {
		return nil, err
	}
	if status != wire.KindOK {
		return nil, wire.New(status, "%s", string(payload))
	}
	return payload, nil
}
