// Package client implements the RXS client library: a control channel
// to a server, authentication, filesystem operations, and the
// stream-pull/stream-push pattern backing fread/fwrite.
package client

import (
	"fmt"
	"net"
	"time"

	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
	"github.com/pfagner/rxs/internal/transport"
)

// DialTimeout bounds the initial TCP connect to the server's control
// socket.
const DialTimeout = 10 * time.Second

// Client is one RXS session: a control channel plus whatever state an
// authenticated session needs to open data channels for streaming.
type Client struct {
	channel *transport.Channel
	host    string // control connection's remote host, reused for data connect-backs
	encoder bool

	nextStreamID uint32
	lastError    rxserr.Errno
	dc           *dataChannels
}

// Dial opens the control connection to addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	host, _, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		host = addr
	}
	return &Client{channel: transport.NewChannel(conn), host: host}, nil
}

// Close closes the control connection.
func (c *Client) Close() error {
	return c.channel.Conn().Close()
}

// LastError returns the most recent client-local or server-reported
// errno, in whichever namespace the failing call left it. A
// successful call does not reset it; check the call's own return
// value first.
func (c *Client) LastError() rxserr.Errno {
	return c.lastError
}

func (c *Client) allocStreamID() uint32 {
	c.nextStreamID++
	return c.nextStreamID
}

// call sends one request and waits for its matching response,
// returning the reply payload on success. A protocol-level failure
// (transport error, malformed frame) is returned as a Go error and
// also recorded client-side in lastError as EIO, matching
// original_source's behavior of collapsing unexpected I/O failures to
// EIO when no more specific errno is available. A semantic failure
// reported by the server (TypeFailReply) is returned as the decoded
// rxserr.Errno, already in its server-side (>= 200) form.
func (c *Client) call(op protocol.Operation, payload []byte) ([]byte, error) {
	req := &protocol.Packet{
		Type:      protocol.TypeRequest,
		UID:       c.channel.NextUID(),
		Operation: op,
		Payload:   payload,
	}
	if err := c.channel.SendFrame(req); err != nil {
		c.lastError = rxserr.EIO
		return nil, fmt.Errorf("client: send %s: %w", op, err)
	}

	resp, err := c.channel.RecvFrame()
	if err != nil {
		c.lastError = rxserr.EIO
		return nil, fmt.Errorf("client: recv %s: %w", op, err)
	}
	if resp.Operation != op {
		c.lastError = rxserr.EIO
		return nil, fmt.Errorf("client: reply to %s carries operation %s, want %s (out-of-order response)", op, resp.Operation, op)
	}

	if resp.Type == protocol.TypeFailReply {
		s0, decErr := protocol.DecodeS0(resp.Payload)
		if decErr != nil {
			c.lastError = rxserr.EIO
			return nil, fmt.Errorf("client: decode %s failure payload: %w", op, decErr)
		}
		c.lastError = rxserr.Errno(s0.Val).Server()
		return nil, c.lastError
	}

	return resp.Payload, nil
}
