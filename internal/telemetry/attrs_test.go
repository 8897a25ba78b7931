package telemetry

import (
	"context"
	"testing"
)

func TestAttributeHelpers(t *testing.T) {
	if attr := ConnID("c-1"); string(attr.Key) != AttrConnID || attr.Value.AsString() != "c-1" {
		t.Errorf("ConnID() = %+v, want key %s value c-1", attr, AttrConnID)
	}
	if attr := ClientIP("10.0.0.1"); string(attr.Key) != AttrClientIP || attr.Value.AsString() != "10.0.0.1" {
		t.Errorf("ClientIP() = %+v, want key %s value 10.0.0.1", attr, AttrClientIP)
	}
	if attr := User("alice"); string(attr.Key) != AttrUser || attr.Value.AsString() != "alice" {
		t.Errorf("User() = %+v, want key %s value alice", attr, AttrUser)
	}
	if attr := Operation("OP_FREAD"); string(attr.Key) != AttrOperation || attr.Value.AsString() != "OP_FREAD" {
		t.Errorf("Operation() = %+v, want key %s value OP_FREAD", attr, AttrOperation)
	}
	if attr := Errno("ENOENT"); string(attr.Key) != AttrErrno || attr.Value.AsString() != "ENOENT" {
		t.Errorf("Errno() = %+v, want key %s value ENOENT", attr, AttrErrno)
	}
	if attr := StreamID(42); string(attr.Key) != AttrStreamID || attr.Value.AsInt64() != 42 {
		t.Errorf("StreamID() = %+v, want key %s value 42", attr, AttrStreamID)
	}
	if attr := BytesIn(1024); string(attr.Key) != AttrBytesIn || attr.Value.AsInt64() != 1024 {
		t.Errorf("BytesIn() = %+v, want key %s value 1024", attr, AttrBytesIn)
	}
	if attr := BytesOut(2048); string(attr.Key) != AttrBytesOut || attr.Value.AsInt64() != 2048 {
		t.Errorf("BytesOut() = %+v, want key %s value 2048", attr, AttrBytesOut)
	}
}

func TestStartOperationSpanSetsConnIDAndOperationAttributes(t *testing.T) {
	newCtx, span := StartOperationSpan(context.Background(), "conn-7", "OP_MKDIR")
	if newCtx == nil || span == nil {
		t.Fatal("StartOperationSpan returned a nil context or span")
	}
	span.End()
}
