package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
	"github.com/pfagner/rxs/internal/transport"
)

func TestEncodeFileInPlaceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := make([]byte, protocol.MaxPortion+100)
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := encodeFileInPlace(path); err != nil {
		t.Fatalf("encodeFileInPlace: %v", err)
	}

	encoded, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(encoded)%protocol.EnvelopeSize != 0 {
		t.Fatalf("encoded length %d is not a multiple of EnvelopeSize %d", len(encoded), protocol.EnvelopeSize)
	}

	var recovered []byte
	for off := 0; off < len(encoded); off += protocol.EnvelopeSize {
		env, decErr := protocol.DecodeEnvelope(encoded[off : off+protocol.EnvelopeSize])
		if decErr != nil {
			t.Fatalf("DecodeEnvelope: %v", decErr)
		}
		recovered = append(recovered, env.Payload()...)
	}
	if string(recovered) != string(content) {
		t.Error("recovered content does not match original")
	}
}

func TestEncodeFileInPlaceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := encodeFileInPlace(path); err != nil {
		t.Fatalf("encodeFileInPlace: %v", err)
	}
	encoded, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(encoded) != protocol.EnvelopeSize {
		t.Fatalf("len(encoded) = %d, want one empty envelope (%d)", len(encoded), protocol.EnvelopeSize)
	}
}

func TestHandleFwriteReceivesPlainData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploaded.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()

	sess := &Session{files: make(map[uint32]*OpenFile), dataConns: make(map[uint32]net.Conn)}
	sess.PutFile(1, &OpenFile{File: f, Name: path})

	dataServer, dataClient := net.Pipe()
	defer dataClient.Close()
	sess.PutDataConn(1, dataServer)

	payload := []byte("hello, this is a small upload")
	go func() {
		_, _ = dataClient.Write(payload)
	}()

	req := &protocol.Packet{Payload: protocol.S4{StreamID: 1, DataSize: uint32(len(payload))}.Encode()}
	respPayload, herr, err := handleFwrite(nil, nil, sess, req)
	if err != nil || herr != nil {
		t.Fatalf("handleFwrite: err=%v herr=%v", err, herr)
	}
	s4, decErr := protocol.DecodeS4(respPayload)
	if decErr != nil || s4.DataSize != uint32(len(payload)) {
		t.Fatalf("resp = %+v, %v", s4, decErr)
	}

	written, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	if string(written) != string(payload) {
		t.Errorf("written = %q, want %q", written, payload)
	}
}

func TestHandleFwriteUnknownStreamIsEBADF(t *testing.T) {
	sess := &Session{files: make(map[uint32]*OpenFile), dataConns: make(map[uint32]net.Conn)}
	req := &protocol.Packet{Payload: protocol.S4{StreamID: 99, DataSize: 10}.Encode()}

	_, herr, err := handleFwrite(nil, nil, sess, req)
	if err != nil {
		t.Fatalf("handleFwrite: %v", err)
	}
	if herr == nil || herr.Code != rxserr.EBADF {
		t.Fatalf("herr = %v, want EBADF", herr)
	}
}

func TestHandleFreadSendsDataThenEOFHandshake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download.bin")
	content := []byte("short file, shorter than one block")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	defer f.Close()

	controlServer, controlClient := net.Pipe()
	defer controlClient.Close()

	sess := &Session{
		Channel:   transport.NewChannel(controlServer),
		files:     make(map[uint32]*OpenFile),
		dataConns: make(map[uint32]net.Conn),
	}
	sess.PutFile(1, &OpenFile{File: f, Name: path})

	dataServer, dataClient := net.Pipe()
	defer dataClient.Close()
	sess.PutDataConn(1, dataServer)

	clientChannel := transport.NewChannel(controlClient)
	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, len(content))
		n, _ := dataClient.Read(buf)
		readDone <- buf[:n]
	}()

	ackDone := make(chan error, 1)
	go func() {
		ack, recvErr := clientChannel.RecvFrame()
		if recvErr != nil {
			ackDone <- recvErr
			return
		}
		s4, decErr := protocol.DecodeS4(ack.Payload)
		if decErr != nil {
			ackDone <- decErr
			return
		}
		if s4.EOF != protocol.EOFMarker {
			ackDone <- fmt.Errorf("ack EOF = %d, want EOFMarker", s4.EOF)
			return
		}
		ackDone <- clientChannel.SendFrame(&protocol.Packet{
			Type:      protocol.TypeRequest,
			UID:       1,
			Operation: protocol.OpFread,
			Payload:   protocol.S0{Val: 0}.Encode(),
		})
	}()

	req := &protocol.Packet{UID: 1, Payload: protocol.S4{StreamID: 1, DataSize: uint32(len(content) + 1000)}.Encode()}
	_, _, err = handleFread(nil, nil, sess, req)
	if err != errHandledDirectly {
		t.Fatalf("handleFread returned err=%v, want errHandledDirectly", err)
	}

	got := <-readDone
	if string(got) != string(content) {
		t.Errorf("data channel payload = %q, want %q", got, content)
	}
	if ackErr := <-ackDone; ackErr != nil {
		t.Fatalf("client-side ack handling: %v", ackErr)
	}
}

func TestHandleFreadUnknownStreamIsEBADF(t *testing.T) {
	sess := &Session{files: make(map[uint32]*OpenFile), dataConns: make(map[uint32]net.Conn)}
	req := &protocol.Packet{Payload: protocol.S4{StreamID: 5, DataSize: 10}.Encode()}

	_, herr, err := handleFread(nil, nil, sess, req)
	if err != nil {
		t.Fatalf("handleFread: %v", err)
	}
	if herr == nil || herr.Code != rxserr.EBADF {
		t.Fatalf("herr = %v, want EBADF", herr)
	}
}

// A request whose size matches the file's remaining bytes exactly, and
// which is smaller than one block, must still be serviced: this is the
// ordinary shape of the final read in a client download loop, not an
// edge case.
func TestHandleFreadExactSizeSmallerThanOneBlockCompletesWithoutHandshake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.bin")
	content := []byte("tiny file")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	defer f.Close()

	sess := &Session{files: make(map[uint32]*OpenFile), dataConns: make(map[uint32]net.Conn)}
	sess.PutFile(1, &OpenFile{File: f, Name: path})

	dataServer, dataClient := net.Pipe()
	defer dataClient.Close()
	sess.PutDataConn(1, dataServer)

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, len(content))
		n, _ := io.ReadFull(dataClient, buf)
		readDone <- buf[:n]
	}()

	req := &protocol.Packet{UID: 1, Payload: protocol.S4{StreamID: 1, DataSize: uint32(len(content))}.Encode()}
	respPayload, herr, err := handleFread(nil, nil, sess, req)
	if err != nil || herr != nil {
		t.Fatalf("handleFread: err=%v herr=%v", err, herr)
	}

	s4, decErr := protocol.DecodeS4(respPayload)
	if decErr != nil {
		t.Fatalf("DecodeS4: %v", decErr)
	}
	if s4.DataSize != uint32(len(content)) {
		t.Errorf("delivered = %d, want %d", s4.DataSize, len(content))
	}
	if s4.EOF == protocol.EOFMarker {
		t.Error("EOF marker set, want a plain completed reply since the request matched the file size exactly")
	}

	got := <-readDone
	if string(got) != string(content) {
		t.Errorf("data channel payload = %q, want %q", got, content)
	}
}

func TestHandlePortConnectsBackToClientListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr == nil {
			accepted <- conn
		}
	}()

	sess := &Session{
		ClientAddr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345},
		dataConns:  make(map[uint32]net.Conn),
	}
	d := &Dispatcher{}
	req := &protocol.Packet{Payload: protocol.S5{StreamID: 3, Port: uint16(port)}.Encode()}

	payload, herr, err := handlePort(context.Background(), d, sess, req)
	if err != nil || herr != nil {
		t.Fatalf("handlePort: err=%v herr=%v", err, herr)
	}
	if s0, decErr := protocol.DecodeS0(payload); decErr != nil || s0.Val != 0 {
		t.Fatalf("payload = %v, %v", s0, decErr)
	}

	conn, ok := sess.GetDataConn(3)
	if !ok {
		t.Fatal("data connection not registered")
	}
	defer conn.Close()

	serverSide := <-accepted
	defer serverSide.Close()
}

func TestHandlePortConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // nothing listening now

	sess := &Session{
		ClientAddr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345},
		dataConns:  make(map[uint32]net.Conn),
	}
	d := &Dispatcher{}
	req := &protocol.Packet{Payload: protocol.S5{StreamID: 1, Port: uint16(port)}.Encode()}

	_, herr, err := handlePort(context.Background(), d, sess, req)
	if err != nil {
		t.Fatalf("handlePort: %v", err)
	}
	if herr == nil || herr.Code != rxserr.ECONNREFUSED {
		t.Fatalf("herr = %v, want ECONNREFUSED", herr)
	}
}
