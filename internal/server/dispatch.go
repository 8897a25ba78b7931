// Package server implements the RXS server dispatcher and per-operation
// handlers: accept, authenticate, and route each control-channel
// request to the OS action it names.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/pfagner/rxs/internal/audit"
	"github.com/pfagner/rxs/internal/logger"
	"github.com/pfagner/rxs/internal/metrics"
	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
	"github.com/pfagner/rxs/internal/telemetry"
)

// handlerFunc executes one operation. It returns either a success
// payload, a recoverable *rxserr.HandlerError to be sent back as a
// failure reply, or a fatal error that closes the session: protocol,
// transport, and resource errors are fatal, semantic errors are not.
// fread/fwrite are special: they drive their own extra control-channel
// exchange over the data stream and signal that by returning
// errHandledDirectly, which tells dispatch not to compose and send a
// second response.
type handlerFunc func(ctx context.Context, d *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error)

// errHandledDirectly marks a handler that already completed its own
// control-channel response (the streaming handlers).
var errHandledDirectly = errors.New("server: handler already sent its own response")

var handlers = map[protocol.Operation]handlerFunc{
	protocol.OpAuthorization: handleAuthorization,
	protocol.OpLs:            handleLs,
	protocol.OpMkdir:         handleMkdir,
	protocol.OpMkdirEx:       handleMkdirEx,
	protocol.OpRmdir:         handleRmdir,
	protocol.OpGetcwd:        handleGetcwd,
	protocol.OpChdir:         handleChdir,
	protocol.OpUnlink:        handleUnlink,
	protocol.OpRename:        handleRename,
	protocol.OpFilesize:      handleFilesize,
	protocol.OpFileExist:     handleFileExist,
	protocol.OpDirExist:      handleDirExist,
	protocol.OpFopen:         handleFopen,
	protocol.OpFflush:        handleFflush,
	protocol.OpFclose:        handleFclose,
	protocol.OpPort:          handlePort,
	protocol.OpFread:         handleFread,
	protocol.OpFwrite:        handleFwrite,
	protocol.OpFseek:         handleNotImplemented,
	protocol.OpFtell:         handleNotImplemented,
	protocol.OpRewind:        handleNotImplemented,
}

// handleNotImplemented covers fseek/ftell/rewind: reserved operation
// codes that return ENOSYS until a real handler is justified.
func handleNotImplemented(_ context.Context, _ *Dispatcher, _ *Session, _ *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	return nil, rxserr.Handler(rxserr.ENOSYS), nil
}

// Dispatcher owns the server-wide immutable Policy snapshot and the
// optional observability collaborators (metrics, audit ledger). It is
// safe for concurrent use: each accepted connection gets its own
// Session and runs in its own goroutine.
type Dispatcher struct {
	Policy     *Policy
	UserDBPath string
	Metrics    metrics.Collector
	Audit      *audit.Ledger
	DataDialer net.Dialer
}

// ListenAndServe accepts connections on ln until ctx is canceled,
// spawning one goroutine per connection. Each session owns a private
// open-file table, so goroutines never share mutable state.
func (d *Dispatcher) ListenAndServe(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go d.handleConn(ctx, conn)
	}
}

func (d *Dispatcher) handleConn(ctx context.Context, conn net.Conn) {
	if !d.Policy.Permit(conn.RemoteAddr()) {
		logger.Warn("connection denied by policy", "addr", conn.RemoteAddr().String())
		_ = conn.Close()
		return
	}

	sess := NewSession(conn)
	sctx := logger.NewSessionContext(sess.ID, conn.RemoteAddr().String())
	ctx = logger.WithSession(ctx, sctx)
	logger.Info("session accepted", "conn_id", sess.ID, "addr", sctx.ClientAddr)

	defer func() {
		_ = sess.Close()
		logger.Info("session closed", "conn_id", sess.ID)
	}()

	for {
		req, err := sess.Channel.RecvFrame()
		if err != nil {
			logger.Info("session recv ended", "conn_id", sess.ID, "error", err.Error())
			return
		}

		if req.Type != protocol.TypeRequest {
			logger.Warn("unexpected packet type from client", "conn_id", sess.ID, "type", req.Type)
			return
		}

		resp, fatal := d.dispatch(ctx, sess, req)
		if fatal != nil {
			logger.Warn("fatal dispatch error", "conn_id", sess.ID, "error", fatal.Error())
			return
		}

		// A streaming handler (fread/fwrite) already drove its own
		// control-channel exchange; nothing left to send here.
		if resp == nil {
			continue
		}

		if err := sess.Channel.SendFrame(resp); err != nil {
			logger.Warn("send response failed", "conn_id", sess.ID, "error", err.Error())
			return
		}

		if resp.Type == protocol.TypeFailReply && req.Operation == protocol.OpAuthorization {
			// Auth failure is policy-fatal: close once the reply is sent.
			return
		}
	}
}

// dispatch routes req to its handler and builds the response packet.
// The returned error is non-nil only for channel-fatal conditions; a
// handler-level failure still yields a valid SC_B1 *protocol.Packet.
func (d *Dispatcher) dispatch(ctx context.Context, sess *Session, req *protocol.Packet) (*protocol.Packet, error) {
	if !sess.Authenticated && req.Operation != protocol.OpAuthorization {
		return failPacket(req, rxserr.EACCES), nil
	}

	h, ok := handlers[req.Operation]
	if !ok {
		return failPacket(req, rxserr.ENOSYS), nil
	}

	ctx, span := telemetry.StartOperationSpan(ctx, sess.ID, req.Operation.String())
	defer span.End()

	start := time.Now()
	payload, herr, fatal := h(ctx, d, sess, req)
	elapsed := time.Since(start)

	if fatal != nil {
		if errors.Is(fatal, errHandledDirectly) {
			d.recordMetrics(req.Operation, elapsed, nil)
			d.recordAudit(sess, req, elapsed, len(req.Payload), 0, nil)
			return nil, nil
		}
		telemetry.RecordError(ctx, fatal)
		return nil, fatal
	}

	d.recordMetrics(req.Operation, elapsed, herr)
	d.recordAudit(sess, req, elapsed, len(req.Payload), len(payload), herr)

	if herr != nil {
		span.SetAttributes(telemetry.Errno(herr.Code.String()))
		telemetry.RecordError(ctx, herr)
		return failPacket(req, herr.Code), nil
	}
	return &protocol.Packet{
		Type:      protocol.TypeOKReply,
		UID:       req.UID,
		Operation: req.Operation,
		Payload:   payload,
	}, nil
}

// recordMetrics reports a dispatched operation's outcome to the
// configured metrics collector, a no-op when d.Metrics is nil.
func (d *Dispatcher) recordMetrics(op protocol.Operation, elapsed time.Duration, herr *rxserr.HandlerError) {
	if d.Metrics == nil {
		return
	}
	code := "OK"
	if herr != nil {
		code = herr.Code.String()
	}
	d.Metrics.RecordOperation(op.String(), elapsed, code)
}

// recordAudit appends an audit.Entry for the dispatched operation. A
// ledger write failure is logged and otherwise ignored: auditing must
// never block or fail the RXS operation it describes.
func (d *Dispatcher) recordAudit(sess *Session, req *protocol.Packet, elapsed time.Duration, bytesIn, bytesOut int, herr *rxserr.HandlerError) {
	if d.Audit == nil {
		return
	}
	code := "OK"
	if herr != nil {
		code = herr.Code.String()
	}
	entry := audit.Entry{
		ConnID:     sess.ID,
		User:       sess.User,
		Operation:  req.Operation.String(),
		Errno:      code,
		DurationMs: elapsed.Milliseconds(),
		BytesIn:    uint64(bytesIn),
		BytesOut:   uint64(bytesOut),
		Time:       time.Now(),
	}
	if err := d.Audit.Record(entry); err != nil {
		logger.Warn("audit write failed", "conn_id", sess.ID, "error", err.Error())
	}
}

func failPacket(req *protocol.Packet, code rxserr.Errno) *protocol.Packet {
	return &protocol.Packet{
		Type:      protocol.TypeFailReply,
		UID:       req.UID,
		Operation: req.Operation,
		Payload:   protocol.S0{Val: uint32(code.Client())}.Encode(),
	}
}
