package protocol

import "testing"

func frame(t *testing.T, op Operation, payload []byte) []byte {
	t.Helper()
	p := &Packet{Type: TypeRequest, UID: 1, Operation: op, Payload: payload}
	return p.Encode()
}

func TestScanFindsFrameAtStart(t *testing.T) {
	buf := frame(t, OpGetcwd, nil)
	result := Scan(buf)
	if result.Status != Found {
		t.Fatalf("status = %v, want Found", result.Status)
	}
	if result.Offset != 0 || result.Length != len(buf) {
		t.Errorf("result = %+v", result)
	}
}

func TestScanSkipsLeadingGarbage(t *testing.T) {
	garbage := []byte{0x01, 0x02, 0x03}
	real := frame(t, OpGetcwd, nil)
	buf := append(append([]byte{}, garbage...), real...)

	result := Scan(buf)
	if result.Status != Found {
		t.Fatalf("status = %v, want Found", result.Status)
	}
	if result.Offset != len(garbage) {
		t.Errorf("offset = %d, want %d", result.Offset, len(garbage))
	}
}

func TestScanNeedMoreOnPartialFrame(t *testing.T) {
	full := frame(t, OpGetcwd, []byte("hello"))
	partial := full[:len(full)-3]

	result := Scan(partial)
	if result.Status != NeedMore {
		t.Fatalf("status = %v, want NeedMore", result.Status)
	}
}

func TestScanNeedMoreOnDanglingSeparator(t *testing.T) {
	result := Scan([]byte{'x', Sep1})
	if result.Status != NeedMore {
		t.Fatalf("status = %v, want NeedMore", result.Status)
	}
}

func TestScanMalformedOnNoSeparator(t *testing.T) {
	result := Scan([]byte{0x01, 0x02, 0x03, 0x04})
	if result.Status != Malformed {
		t.Fatalf("status = %v, want Malformed", result.Status)
	}
}

func TestScanCrcMismatch(t *testing.T) {
	buf := frame(t, OpGetcwd, []byte("hello"))
	buf[len(buf)-1] ^= 0xFF // corrupt the last payload byte without touching the header

	result := Scan(buf)
	if result.Status != CrcMismatch {
		t.Fatalf("status = %v, want CrcMismatch", result.Status)
	}
}

func TestScanRejectsCoincidentalSeparatorInPayload(t *testing.T) {
	// A payload that happens to contain the separator pair should not
	// confuse the scanner into finding a frame inside the first frame's
	// own payload: the real frame still wins because its header is the
	// first plausible one found scanning forward.
	payload := []byte{Sep1, Sep2, 0x00, 0x00}
	buf := frame(t, OpGetcwd, payload)

	result := Scan(buf)
	if result.Status != Found {
		t.Fatalf("status = %v, want Found", result.Status)
	}
	if result.Offset != 0 {
		t.Errorf("offset = %d, want 0", result.Offset)
	}
}

func TestScanMultipleFramesFindsFirst(t *testing.T) {
	first := frame(t, OpGetcwd, nil)
	second := frame(t, OpFtell, []byte("x"))
	buf := append(append([]byte{}, first...), second...)

	result := Scan(buf)
	if result.Status != Found || result.Offset != 0 || result.Length != len(first) {
		t.Fatalf("result = %+v, want first frame at offset 0 length %d", result, len(first))
	}

	remainder := buf[result.Length:]
	result2 := Scan(remainder)
	if result2.Status != Found || result2.Offset != 0 || result2.Length != len(second) {
		t.Fatalf("second scan = %+v, want second frame at offset 0 length %d", result2, len(second))
	}
}
