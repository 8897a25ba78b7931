package protocol

import (
	"encoding/binary"
	"fmt"
)

// Slot payloads follow one of six stereotyped shapes. All
// integers inside a slot are big-endian, independent of the packet
// header's own byte order (which is also big-endian, so in practice
// every multi-byte field on the wire is network order end to end).

// S0 carries a single uint32: the common "just a number" response
// shape (errno, stream id, byte count, boolean).
type S0 struct {
	Val uint32
}

func (s S0) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, s.Val)
	return buf
}

func DecodeS0(buf []byte) (S0, error) {
	if len(buf) != 4 {
		return S0{}, fmt.Errorf("protocol: S0 wants 4 bytes, got %d", len(buf))
	}
	return S0{Val: binary.BigEndian.Uint32(buf)}, nil
}

// S1 carries one length-prefixed byte string (a path, a command line,
// a downloaded dump's server-side filename, ...).
type S1 struct {
	Data []byte
}

func (s S1) Encode() []byte {
	buf := make([]byte, 4+len(s.Data))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(s.Data)))
	copy(buf[4:], s.Data)
	return buf
}

func DecodeS1(buf []byte) (S1, error) {
	if len(buf) < 4 {
		return S1{}, fmt.Errorf("protocol: S1 header truncated")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	if uint32(len(buf)-4) < n {
		return S1{}, fmt.Errorf("protocol: S1 body truncated: want %d have %d", n, len(buf)-4)
	}
	data := make([]byte, n)
	copy(data, buf[4:4+n])
	return S1{Data: data}, nil
}

// S2 carries two length-prefixed byte strings followed by a one-byte
// encoder flag. Used for authorization (user, password, encoder) and
// rename (old path, new path, encoder-echo).
type S2 struct {
	Data1   []byte
	Data2   []byte
	Encoder uint8
}

func (s S2) Encode() []byte {
	buf := make([]byte, 4+len(s.Data1)+4+len(s.Data2)+1)
	off := 0
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(s.Data1)))
	off += 4
	copy(buf[off:], s.Data1)
	off += len(s.Data1)
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(s.Data2)))
	off += 4
	copy(buf[off:], s.Data2)
	off += len(s.Data2)
	buf[off] = s.Encoder
	return buf
}

func DecodeS2(buf []byte) (S2, error) {
	if len(buf) < 4 {
		return S2{}, fmt.Errorf("protocol: S2 header truncated")
	}
	n1 := binary.BigEndian.Uint32(buf[:4])
	off := 4
	if uint32(len(buf)-off) < n1 {
		return S2{}, fmt.Errorf("protocol: S2 data1 truncated")
	}
	data1 := make([]byte, n1)
	copy(data1, buf[off:off+int(n1)])
	off += int(n1)

	if len(buf)-off < 4 {
		return S2{}, fmt.Errorf("protocol: S2 missing len2")
	}
	n2 := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	if uint32(len(buf)-off) < n2 {
		return S2{}, fmt.Errorf("protocol: S2 data2 truncated")
	}
	data2 := make([]byte, n2)
	copy(data2, buf[off:off+int(n2)])
	off += int(n2)

	if len(buf)-off < 1 {
		return S2{}, fmt.Errorf("protocol: S2 missing encoder flag")
	}
	return S2{Data1: data1, Data2: data2, Encoder: buf[off]}, nil
}

// S3 carries one length-prefixed byte string followed by a uint32 (a
// path plus a mode, or a path plus an error/size companion value).
type S3 struct {
	Data []byte
	Val  uint32
}

func (s S3) Encode() []byte {
	buf := make([]byte, 4+len(s.Data)+4)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(s.Data)))
	copy(buf[4:], s.Data)
	binary.BigEndian.PutUint32(buf[4+len(s.Data):], s.Val)
	return buf
}

func DecodeS3(buf []byte) (S3, error) {
	if len(buf) < 4 {
		return S3{}, fmt.Errorf("protocol: S3 header truncated")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	if uint32(len(buf)-4) < n+4 {
		return S3{}, fmt.Errorf("protocol: S3 body truncated")
	}
	data := make([]byte, n)
	copy(data, buf[4:4+n])
	val := binary.BigEndian.Uint32(buf[4+n : 4+n+4])
	return S3{Data: data, Val: val}, nil
}

// S4 is the streaming control slot: a stream id, a byte count
// (requested/total/delivered depending on the call), and an EOF flag.
type S4 struct {
	StreamID uint32
	DataSize uint32
	EOF      uint16
}

// EOFMarker is the sentinel EOF value.
const EOFMarker uint16 = 0xFFFF

func (s S4) Encode() []byte {
	buf := make([]byte, 4+4+2)
	binary.BigEndian.PutUint32(buf[0:4], s.StreamID)
	binary.BigEndian.PutUint32(buf[4:8], s.DataSize)
	binary.BigEndian.PutUint16(buf[8:10], s.EOF)
	return buf
}

func DecodeS4(buf []byte) (S4, error) {
	if len(buf) != 10 {
		return S4{}, fmt.Errorf("protocol: S4 wants 10 bytes, got %d", len(buf))
	}
	return S4{
		StreamID: binary.BigEndian.Uint32(buf[0:4]),
		DataSize: binary.BigEndian.Uint32(buf[4:8]),
		EOF:      binary.BigEndian.Uint16(buf[8:10]),
	}, nil
}

// S5 carries a stream id and a port. Port holds the numeric port; Encode
// writes it big-endian like every other slot integer and DecodeS5 reads
// it back, so callers on both sides use the plain host value.
type S5 struct {
	StreamID uint32
	Port     uint16
}

func (s S5) Encode() []byte {
	buf := make([]byte, 4+2)
	binary.BigEndian.PutUint32(buf[0:4], s.StreamID)
	buf[4] = byte(s.Port >> 8)
	buf[5] = byte(s.Port)
	return buf
}

func DecodeS5(buf []byte) (S5, error) {
	if len(buf) != 6 {
		return S5{}, fmt.Errorf("protocol: S5 wants 6 bytes, got %d", len(buf))
	}
	return S5{
		StreamID: binary.BigEndian.Uint32(buf[0:4]),
		Port:     uint16(buf[4])<<8 | uint16(buf[5]),
	}, nil
}
