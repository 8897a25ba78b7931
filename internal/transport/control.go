// Package transport implements the RXS control channel: a
// reliable, length-prefixed packet exchange over TCP with a write
// retry/timeout policy and a read-side scanner loop with carry-over
// buffering.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pfagner/rxs/internal/protocol"
)

const (
	// PollTimeout bounds every single read/write attempt on the control
	// socket.
	PollTimeout = 60 * time.Second
	// WriteRetries is how many short-write retries send_frame performs
	// before giving up fatally.
	WriteRetries = 10
	// WriteRetryDelay is the spacing between short-write retries.
	WriteRetryDelay = 500 * time.Millisecond
	// readBufferSize is the internal accumulation buffer recv_frame
	// reads into, matching the source's 128 KiB scan buffer.
	readBufferSize = 128 * 1024
)

// ErrChannelClosed is returned by RecvFrame when the peer has cleanly
// closed its end of the connection.
var ErrChannelClosed = errors.New("transport: channel closed by peer")

// Channel wraps a TCP connection with RXS control-channel framing. It is
// not safe for concurrent use by multiple goroutines: the protocol
// allows at most one in-flight request per session, so a
// Channel is owned by exactly one session loop at a time.
type Channel struct {
	conn  net.Conn
	carry []byte
	uid   uint32
}

// NewChannel wraps conn. The caller retains ownership of conn's
// lifecycle (Close).
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Conn returns the underlying connection, e.g. so the server dispatcher
// can read the peer address.
func (c *Channel) Conn() net.Conn {
	return c.conn
}

// NextUID returns the next sender-local monotonically increasing
// request id.
func (c *Channel) NextUID() uint32 {
	c.uid++
	return c.uid
}

// SendFrame serializes and writes pkt, retrying on short writes up to
// WriteRetries times spaced by WriteRetryDelay, with a PollTimeout
// deadline on each attempt. A hard socket error is fatal and returned
// immediately.
func (c *Channel) SendFrame(pkt *protocol.Packet) error {
	buf := pkt.Encode()
	written := 0

	for attempt := 0; written < len(buf); attempt++ {
		if attempt > 0 {
			if attempt > WriteRetries {
				return fmt.Errorf("transport: short write after %d retries", WriteRetries)
			}
			time.Sleep(WriteRetryDelay)
		}

		if err := c.conn.SetWriteDeadline(time.Now().Add(PollTimeout)); err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}

		n, err := c.conn.Write(buf[written:])
		written += n
		if err != nil {
			if isTimeout(err) && written < len(buf) {
				continue
			}
			return fmt.Errorf("transport: write: %w", err)
		}
	}

	return nil
}

// RecvFrame reads from the connection, scanning the accumulated bytes
// (internal buffer plus any carry-over from the previous call) until a
// complete frame is found, the peer closes the connection, or a
// protocol/timeout error occurs. CRC mismatches and malformed frames
// are fatal for the channel.
func (c *Channel) RecvFrame() (*protocol.Packet, error) {
	buf := c.carry
	c.carry = nil
	read := make([]byte, readBufferSize)

	for {
		if len(buf) >= protocol.HeaderSize {
			result := protocol.Scan(buf)
			switch result.Status {
			case protocol.Found:
				frame := buf[result.Offset : result.Offset+result.Length]
				pkt, err := protocol.Decode(frame)
				if err != nil {
					return nil, fmt.Errorf("transport: decode frame: %w", err)
				}
				rest := buf[result.Offset+result.Length:]
				if len(rest) > 0 {
					c.carry = append([]byte(nil), rest...)
				}
				return pkt, nil
			case protocol.CrcMismatch:
				return nil, fmt.Errorf("transport: CRC mismatch in frame at offset %d", result.Offset)
			case protocol.Malformed:
				return nil, fmt.Errorf("transport: malformed frame, could not resynchronize")
			case protocol.NeedMore:
				if result.Offset > 0 {
					buf = buf[result.Offset:]
				}
			}
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(PollTimeout)); err != nil {
			// net.Pipe refuses deadlines once either end is closed; the
			// read below then reports io.EOF for a peer close.
			if !errors.Is(err, io.ErrClosedPipe) {
				return nil, fmt.Errorf("transport: set read deadline: %w", err)
			}
		}

		n, err := c.conn.Read(read)
		if n > 0 {
			buf = append(buf, read[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n == 0 {
					return nil, ErrChannelClosed
				}
				continue
			}
			return nil, fmt.Errorf("transport: read: %w", err)
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
