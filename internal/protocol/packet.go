package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Sep1 and Sep2 are the two literal separator bytes that open every
// packet on the wire.
const (
	Sep1 byte = '*'
	Sep2 byte = '*'
)

// HeaderSize is the fixed size, in bytes, of everything in a Packet
// before the payload: sep1, sep2, sz, type, uid, crc32, operation.
const HeaderSize = 1 + 1 + 4 + 1 + 4 + 4 + 2

// Packet is one control-channel frame.
type Packet struct {
	Type      PacketType
	UID       uint32
	Operation Operation
	Payload   []byte
}

// Encode serializes p into its wire form. Sz and CRC32 are computed from
// the current payload; the caller never sets them directly.
func (p *Packet) Encode() []byte {
	sz := HeaderSize + len(p.Payload)
	buf := make([]byte, sz)

	buf[0] = Sep1
	buf[1] = Sep2
	binary.BigEndian.PutUint32(buf[2:6], uint32(sz))
	buf[6] = byte(p.Type)
	binary.BigEndian.PutUint32(buf[7:11], p.UID)
	binary.BigEndian.PutUint32(buf[11:15], crc32.ChecksumIEEE(p.Payload))
	binary.BigEndian.PutUint16(buf[15:17], uint16(p.Operation))
	copy(buf[HeaderSize:], p.Payload)

	return buf
}

// decodeHeader is the plausibility check the scanner runs on every
// candidate separator pair. It never fails on a well-formed frame and
// always fails fast on garbage so the scanner can keep sliding forward.
type header struct {
	sz        uint32
	typ       PacketType
	uid       uint32
	crc32     uint32
	operation Operation
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, fmt.Errorf("protocol: short header (%d bytes)", len(buf))
	}
	h := header{
		sz:        binary.BigEndian.Uint32(buf[2:6]),
		typ:       PacketType(buf[6]),
		uid:       binary.BigEndian.Uint32(buf[7:11]),
		crc32:     binary.BigEndian.Uint32(buf[11:15]),
		operation: Operation(binary.BigEndian.Uint16(buf[15:17])),
	}
	if h.sz < HeaderSize {
		return header{}, fmt.Errorf("protocol: implausible size %d", h.sz)
	}
	if !h.typ.Valid() {
		return header{}, fmt.Errorf("protocol: implausible type %d", h.typ)
	}
	if !h.operation.Valid() {
		return header{}, fmt.Errorf("protocol: implausible operation %d", h.operation)
	}
	return h, nil
}
