package client

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
)

// AcceptTimeout bounds how long a freshly advertised data-channel
// listener waits for the server's connect-back.
const AcceptTimeout = 10 * time.Second

var (
	dataConnsMu sync.Mutex
)

// dataChannels is a Client's open stream-id -> data connection table,
// held in Client.dc and created on first use by channels() under
// dataConnsMu. The map itself is not locked: RXS clients are not meant
// to be driven concurrently from multiple goroutines on one Client,
// mirroring the synchronous C client this protocol was designed around.
type dataChannels struct {
	conns map[uint32]net.Conn
}

func (c *Client) channels() *dataChannels {
	dataConnsMu.Lock()
	defer dataConnsMu.Unlock()
	if c.dc == nil {
		c.dc = &dataChannels{conns: make(map[uint32]net.Conn)}
	}
	return c.dc
}

// openDataChannel binds an ephemeral local listener, advertises its
// port to the server via OpPort, and accepts the server's connect-back.
// This mirrors the original client library's point-create sequence:
// bind, listen, send the port, poll the listener for the server's
// connection, accept it as the data socket.
func (c *Client) openDataChannel(streamID uint32) (net.Conn, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("client: listen for data channel: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		if err := ln.(*net.TCPListener).SetDeadline(time.Now().Add(AcceptTimeout)); err != nil {
			accepted <- acceptResult{err: err}
			return
		}
		conn, err := ln.Accept()
		accepted <- acceptResult{conn: conn, err: err}
	}()

	req := protocol.S5{StreamID: streamID, Port: uint16(port)}
	if _, err := c.call(protocol.OpPort, req.Encode()); err != nil {
		return nil, err
	}

	select {
	case res := <-accepted:
		if res.err != nil {
			return nil, fmt.Errorf("client: accept data channel connect-back: %w", res.err)
		}
		if tcpConn, ok := res.conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
		c.channels().conns[streamID] = res.conn
		return res.conn, nil
	case <-time.After(AcceptTimeout):
		return nil, fmt.Errorf("client: timed out waiting for data channel connect-back")
	}
}

func (c *Client) dataConn(streamID uint32) (net.Conn, bool) {
	dc := c.channels()
	conn, ok := dc.conns[streamID]
	return conn, ok
}

func (c *Client) closeDataChannel(streamID uint32) {
	dc := c.channels()
	if conn, ok := dc.conns[streamID]; ok {
		_ = conn.Close()
		delete(dc.conns, streamID)
	}
}

// Fread pulls up to n bytes of f's remaining content over f's data
// channel, opening it on first use. The returned bool reports whether the server
// reported end of file for this read; a short, non-error read with
// eof false should not happen under a well-formed server.
func (f *File) Fread(n uint32) (data []byte, eof bool, err error) {
	conn, ok := f.c.dataConn(f.id)
	if !ok {
		conn, err = f.c.openDataChannel(f.id)
		if err != nil {
			return nil, false, err
		}
	}

	req := &protocol.Packet{
		Type:      protocol.TypeRequest,
		UID:       f.c.channel.NextUID(),
		Operation: protocol.OpFread,
		Payload:   protocol.S4{StreamID: f.id, DataSize: n}.Encode(),
	}
	if err := f.c.channel.SendFrame(req); err != nil {
		return nil, false, fmt.Errorf("client: send fread: %w", err)
	}

	blockSize := protocol.MaxPortion
	if f.c.encoder {
		blockSize = protocol.EnvelopeSize
	}

	buf := make([]byte, 0, n)
	block := make([]byte, blockSize)
	var received uint32

	for received < n {
		want := blockSize
		if remaining := n - received; remaining < uint32(want) {
			want = int(remaining)
		}

		read, readErr := conn.Read(block[:want])
		if read > 0 {
			buf = append(buf, block[:read]...)
			received += uint32(read)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return buf, false, fmt.Errorf("client: fread data read: %w", readErr)
		}
		if read < want {
			// Server stopped short of a full block: it is about to
			// report EOF on the control channel.
			break
		}
	}

	resp, err := f.c.channel.RecvFrame()
	if err != nil {
		return buf, false, fmt.Errorf("client: fread control reply: %w", err)
	}

	switch resp.Type {
	case protocol.TypeFailReply:
		s0, decErr := protocol.DecodeS0(resp.Payload)
		if decErr != nil {
			return buf, false, decErr
		}
		f.c.lastError = rxserr.Errno(s0.Val).Server()
		return buf, false, f.c.lastError
	case protocol.TypeOKReply:
		s4, decErr := protocol.DecodeS4(resp.Payload)
		if decErr != nil {
			return buf, false, decErr
		}
		eof = s4.EOF == protocol.EOFMarker
		if eof {
			confirm := &protocol.Packet{
				Type:      protocol.TypeRequest,
				UID:       f.c.channel.NextUID(),
				Operation: protocol.OpFread,
				Payload:   protocol.S0{Val: 0}.Encode(),
			}
			if sendErr := f.c.channel.SendFrame(confirm); sendErr != nil {
				return buf, eof, fmt.Errorf("client: fread eof confirmation: %w", sendErr)
			}
		}
		return buf, eof, nil
	default:
		return buf, false, fmt.Errorf("client: fread reply carries unexpected type %d", resp.Type)
	}
}

// Fwrite pushes data to f over f's data channel, opening it on first
// use, in protocol.MaxPortion chunks, wrapping each in an Envelope when
// encoder mode is active.
func (f *File) Fwrite(data []byte) error {
	conn, ok := f.c.dataConn(f.id)
	if !ok {
		var err error
		conn, err = f.c.openDataChannel(f.id)
		if err != nil {
			return err
		}
	}

	req := &protocol.Packet{
		Type:      protocol.TypeRequest,
		UID:       f.c.channel.NextUID(),
		Operation: protocol.OpFwrite,
		Payload:   protocol.S4{StreamID: f.id, DataSize: uint32(len(data))}.Encode(),
	}
	if err := f.c.channel.SendFrame(req); err != nil {
		return fmt.Errorf("client: send fwrite: %w", err)
	}

	for off := 0; off < len(data); {
		end := off + protocol.MaxPortion
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		var wire []byte
		if f.c.encoder {
			env := &protocol.Envelope{Len: uint16(len(chunk))}
			copy(env.Data[:], chunk)
			wire = env.Encode()
		} else {
			wire = chunk
		}

		if _, err := conn.Write(wire); err != nil {
			return fmt.Errorf("client: fwrite data write: %w", err)
		}
		off = end
	}

	resp, err := f.c.channel.RecvFrame()
	if err != nil {
		return fmt.Errorf("client: fwrite control reply: %w", err)
	}
	if resp.Type == protocol.TypeFailReply {
		s0, decErr := protocol.DecodeS0(resp.Payload)
		if decErr != nil {
			return decErr
		}
		f.c.lastError = rxserr.Errno(s0.Val).Server()
		return f.c.lastError
	}
	return nil
}
