package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for RXS control-plane operations.
const (
	AttrConnID    = "rxs.conn_id"
	AttrClientIP  = "rxs.client_ip"
	AttrUser      = "rxs.user"
	AttrOperation = "rxs.operation"
	AttrErrno     = "rxs.errno"
	AttrStreamID  = "rxs.stream_id"
	AttrBytesIn   = "rxs.bytes_in"
	AttrBytesOut  = "rxs.bytes_out"
)

func ConnID(id string) attribute.KeyValue    { return attribute.String(AttrConnID, id) }
func ClientIP(ip string) attribute.KeyValue  { return attribute.String(AttrClientIP, ip) }
func User(name string) attribute.KeyValue    { return attribute.String(AttrUser, name) }
func Operation(op string) attribute.KeyValue { return attribute.String(AttrOperation, op) }
func Errno(code string) attribute.KeyValue   { return attribute.String(AttrErrno, code) }
func StreamID(id uint32) attribute.KeyValue  { return attribute.Int64(AttrStreamID, int64(id)) }
func BytesIn(n int) attribute.KeyValue       { return attribute.Int64(AttrBytesIn, int64(n)) }
func BytesOut(n int) attribute.KeyValue      { return attribute.Int64(AttrBytesOut, int64(n)) }

// StartOperationSpan starts a span for one dispatched RXS operation.
func StartOperationSpan(ctx context.Context, connID, op string) (context.Context, trace.Span) {
	return StartSpan(ctx, "rxs."+op, trace.WithAttributes(ConnID(connID), Operation(op)))
}
