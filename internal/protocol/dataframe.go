package protocol

import (
	"encoding/binary"
	"fmt"
)

// MaxPortion is the maximum number of raw payload bytes per plain-mode
// data-channel frame.
const MaxPortion = 982

// Encoder-mode envelope field widths.
const (
	cryptKeySize = 8
	cryptLenSize = 2
	cryptImitSize = 8
	// EnvelopeSize is the fixed total size of one encoder-mode frame:
	// key_info(8) + len(2) + data(982) + imit(8) = 998 bytes.
	EnvelopeSize = cryptKeySize + cryptLenSize + MaxPortion + cryptImitSize
)

// Envelope is the opaque per-frame wrapper used in encoder mode. Its
// contents beyond the field layout are uninterpreted by this package:
// KeyInfo and Imit are carried verbatim, Len records how many of the
// 982 Data bytes are meaningful (the rest is right-padding).
type Envelope struct {
	KeyInfo [cryptKeySize]byte
	Len     uint16
	Data    [MaxPortion]byte
	Imit    [cryptImitSize]byte
}

// Encode serializes an Envelope to its fixed 998-byte wire form.
func (e *Envelope) Encode() []byte {
	buf := make([]byte, EnvelopeSize)
	off := 0
	copy(buf[off:off+cryptKeySize], e.KeyInfo[:])
	off += cryptKeySize
	binary.BigEndian.PutUint16(buf[off:off+cryptLenSize], e.Len)
	off += cryptLenSize
	copy(buf[off:off+MaxPortion], e.Data[:])
	off += MaxPortion
	copy(buf[off:off+cryptImitSize], e.Imit[:])
	return buf
}

// DecodeEnvelope parses exactly EnvelopeSize bytes into an Envelope.
func DecodeEnvelope(buf []byte) (*Envelope, error) {
	if len(buf) != EnvelopeSize {
		return nil, fmt.Errorf("protocol: envelope wants %d bytes, got %d", EnvelopeSize, len(buf))
	}
	e := &Envelope{}
	off := 0
	copy(e.KeyInfo[:], buf[off:off+cryptKeySize])
	off += cryptKeySize
	e.Len = binary.BigEndian.Uint16(buf[off : off+cryptLenSize])
	off += cryptLenSize
	copy(e.Data[:], buf[off:off+MaxPortion])
	off += MaxPortion
	copy(e.Imit[:], buf[off:off+cryptImitSize])
	if int(e.Len) > MaxPortion {
		return nil, fmt.Errorf("protocol: envelope len %d exceeds max portion %d", e.Len, MaxPortion)
	}
	return e, nil
}

// Payload returns the meaningful (non-padding) bytes of the envelope.
func (e *Envelope) Payload() []byte {
	return e.Data[:e.Len]
}

// FrameSize returns the on-wire size of one data-channel frame for the
// given mode: exactly EnvelopeSize in encoder mode, up to MaxPortion in
// plain mode.
func FrameSize(encoderMode bool) int {
	if encoderMode {
		return EnvelopeSize
	}
	return MaxPortion
}
