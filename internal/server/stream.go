package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/pfagner/rxs/internal/logger"
	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
)

// handlePort establishes the data channel for one stream: the client
// has already bound a listener and advertised its port via S5, and the
// server connects back to it.
func handlePort(ctx context.Context, d *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s5, err := protocol.DecodeS5(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	host, _, splitErr := net.SplitHostPort(sess.ClientAddr.String())
	if splitErr != nil {
		host = sess.ClientAddr.String()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(int(s5.Port)))

	conn, dialErr := d.DataDialer.DialContext(ctx, "tcp", addr)
	if dialErr != nil {
		logger.Warn("data channel connect-back failed", "conn_id", sess.ID, "addr", addr, "error", dialErr.Error())
		return nil, rxserr.Handler(rxserr.ECONNREFUSED), nil
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		// TCP_MAXSEG (encoder mode's 1012-byte segment hint) has no
		// portable accessor in net.TCPConn; left at the OS default.
	}

	sess.PutDataConn(s5.StreamID, conn)
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

// handleFread streams the open file to the data socket in chunks of up
// to one block (a request's last chunk may be shorter), and when the file is exhausted mid-request it sends its
// own final control response carrying an EOF marker and then blocks
// for the client's acknowledgment before returning — a second control
// exchange the generic dispatch loop does not model, hence
// errHandledDirectly.
func handleFread(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s4, err := protocol.DecodeS4(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	of, ok := sess.GetFile(s4.StreamID)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}
	dataConn, ok := sess.GetDataConn(s4.StreamID)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}

	blockSize := protocol.MaxPortion
	if sess.EncoderMode {
		blockSize = protocol.EnvelopeSize
	}
	buf := make([]byte, blockSize)

	var delivered uint32
	for delivered < s4.DataSize {
		want := blockSize
		if remaining := s4.DataSize - delivered; remaining < uint32(want) {
			want = int(remaining)
		}

		n, readErr := io.ReadFull(of.File, buf[:want])
		atEOF := false
		switch {
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			atEOF = true
		case readErr != nil:
			return nil, rxserr.HandlerFromError(readErr), nil
		}

		sendLen := n
		if sess.EncoderMode && n > 0 {
			for i := n; i < blockSize; i++ {
				buf[i] = 0
			}
			sendLen = blockSize
		}
		if sendLen > 0 {
			if _, werr := dataConn.Write(buf[:sendLen]); werr != nil {
				return nil, nil, fmt.Errorf("server: fread data write: %w", werr)
			}
		}
		delivered += uint32(sendLen)

		if atEOF {
			ack := &protocol.Packet{
				Type:      protocol.TypeOKReply,
				UID:       req.UID,
				Operation: protocol.OpFread,
				Payload:   protocol.S4{StreamID: s4.StreamID, DataSize: delivered, EOF: protocol.EOFMarker}.Encode(),
			}
			if sendErr := sess.Channel.SendFrame(ack); sendErr != nil {
				return nil, nil, fmt.Errorf("server: fread eof notice: %w", sendErr)
			}

			confirm, recvErr := sess.Channel.RecvFrame()
			if recvErr != nil {
				return nil, nil, fmt.Errorf("server: fread client confirmation: %w", recvErr)
			}
			if confirm.Operation != protocol.OpFread {
				return nil, nil, fmt.Errorf("server: fread confirmation carries operation %s, want fread", confirm.Operation)
			}
			return nil, nil, errHandledDirectly
		}
	}

	return protocol.S4{StreamID: s4.StreamID, DataSize: delivered, EOF: 0}.Encode(), nil, nil
}

// handleFwrite receives frames from the data socket until DataSize
// payload bytes have arrived and writes each frame's payload to the open
// file: raw chunks of up to MaxPortion bytes in plain mode, whole
// EnvelopeSize envelopes (one per MaxPortion of payload) in encoder mode.
func handleFwrite(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s4, err := protocol.DecodeS4(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	of, ok := sess.GetFile(s4.StreamID)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}
	dataConn, ok := sess.GetDataConn(s4.StreamID)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}

	blockSize := protocol.MaxPortion
	if sess.EncoderMode {
		blockSize = protocol.EnvelopeSize
	}
	buf := make([]byte, blockSize)

	var total uint32
	for total < s4.DataSize {
		want := blockSize
		if remaining := s4.DataSize - total; !sess.EncoderMode && remaining < uint32(want) {
			want = int(remaining)
		}

		n, readErr := io.ReadFull(dataConn, buf[:want])
		if readErr != nil {
			return nil, rxserr.Handler(rxserr.EIO), nil
		}

		chunk := buf[:n]
		if sess.EncoderMode {
			env, decErr := protocol.DecodeEnvelope(chunk)
			if decErr != nil {
				return nil, rxserr.Handler(rxserr.EINVAL), nil
			}
			chunk = env.Payload()
		}

		if _, werr := of.File.Write(chunk); werr != nil {
			return nil, rxserr.HandlerFromError(werr), nil
		}
		total += uint32(len(chunk))
	}

	return protocol.S4{StreamID: s4.StreamID, DataSize: s4.DataSize, EOF: 0}.Encode(), nil, nil
}

// encodeFileInPlace rewrites path as a sequence of fixed-size envelope
// frames: each successive chunk of up to MaxPortion raw bytes becomes
// one EnvelopeSize-byte record, so a later encoder-mode fread of this
// file can ship it verbatim in EnvelopeSize blocks. key_info/imit are
// left zeroed — this server does not implement a symmetric cipher over
// the envelope, only its length-and-padding framing, which is all the
// client's decoder needs to round-trip.
func encodeFileInPlace(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for off := 0; off < len(raw) || len(raw) == 0; off += protocol.MaxPortion {
		end := off + protocol.MaxPortion
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[off:end]

		env := &protocol.Envelope{Len: uint16(len(chunk))}
		copy(env.Data[:], chunk)
		if _, werr := f.Write(env.Encode()); werr != nil {
			return werr
		}
		if len(raw) == 0 {
			break
		}
	}
	return nil
}
