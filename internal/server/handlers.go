package server

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/rxserr"
	"github.com/pfagner/rxs/internal/server/userdb"
)

// handleAuthorization implements the only operation a session may issue
// before authentication: it verifies the submitted credentials against
// the flat user database, binds the session to that user's home
// directory, and latches the session's encoder-mode flag for the
// remainder of the connection.
func handleAuthorization(_ context.Context, d *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s2, err := protocol.DecodeS2(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	record, aerr := userdb.Authenticate(d.UserDBPath, string(s2.Data1), string(s2.Data2))
	if aerr != nil {
		return nil, rxserr.Handler(rxserr.EIO), nil
	}
	if record == nil {
		return nil, rxserr.Handler(rxserr.EACCES), nil
	}

	tmpDir := filepath.Join(record.HomeDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, rxserr.HandlerFromError(err), nil
	}

	sess.Authenticated = true
	sess.User = record.Name
	sess.HomeDir = record.HomeDir
	sess.CurrentDir = record.HomeDir
	sess.EncoderMode = s2.Encoder != 0

	return protocol.S0{Val: 0}.Encode(), nil, nil
}

// handleLs runs the requested shell command, redirects its output to a
// timestamped file under the session's tmp directory, re-encodes that
// file in place when encoder mode is on, and hands back its path — the
// client downloads it afterward via fopen/fread.
func handleLs(ctx context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}

	outPath := filepath.Join(sess.HomeDir, "tmp", fmt.Sprintf("%d_output.dat", time.Now().UnixNano()))
	out, oerr := os.Create(outPath)
	if oerr != nil {
		return nil, rxserr.HandlerFromError(oerr), nil
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, "bash", "-c", string(s1.Data))
	cmd.Stdout = out
	if runErr := cmd.Run(); runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return nil, rxserr.HandlerFromError(runErr), nil
		}
		// Non-zero exit status from the command itself is not an RXS
		// error: the captured output file still exists and is returned.
	}

	if sess.EncoderMode {
		if err := encodeFileInPlace(outPath); err != nil {
			return nil, rxserr.HandlerFromError(err), nil
		}
	}

	return protocol.S1{Data: []byte(outPath)}.Encode(), nil, nil
}

func handleMkdir(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s3, err := protocol.DecodeS3(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s3.Data))
	if mkErr := os.Mkdir(path, os.FileMode(s3.Val)); mkErr != nil {
		return nil, rxserr.HandlerFromError(mkErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleMkdirEx(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s3, err := protocol.DecodeS3(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s3.Data))
	if mkErr := os.MkdirAll(path, os.FileMode(s3.Val)); mkErr != nil {
		return nil, rxserr.HandlerFromError(mkErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleRmdir(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s1.Data))
	if rmErr := os.Remove(path); rmErr != nil {
		return nil, rxserr.HandlerFromError(rmErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleGetcwd(_ context.Context, _ *Dispatcher, sess *Session, _ *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	// The request's S0 caller buffer size is not read: the emulated cwd
	// is always returned in full, never truncated to the caller's buffer.
	return protocol.S1{Data: []byte(sess.CurrentDir)}.Encode(), nil, nil
}

func handleChdir(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s1.Data))
	info, statErr := os.Stat(path)
	if statErr != nil {
		return nil, rxserr.HandlerFromError(statErr), nil
	}
	if !info.IsDir() {
		return nil, rxserr.Handler(rxserr.ENOTDIR), nil
	}
	sess.CurrentDir = path
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleUnlink(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s1.Data))
	if rmErr := os.Remove(path); rmErr != nil {
		return nil, rxserr.HandlerFromError(rmErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleRename(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s2, err := protocol.DecodeS2(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	oldPath := sess.Resolve(string(s2.Data1))
	newPath := sess.Resolve(string(s2.Data2))
	if rnErr := os.Rename(oldPath, newPath); rnErr != nil {
		return nil, rxserr.HandlerFromError(rnErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleFilesize(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	info, statErr := os.Stat(sess.Resolve(string(s1.Data)))
	if statErr != nil {
		return nil, rxserr.HandlerFromError(statErr), nil
	}
	return protocol.S0{Val: uint32(info.Size())}.Encode(), nil, nil
}

func handleFileExist(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	info, statErr := os.Stat(sess.Resolve(string(s1.Data)))
	if statErr != nil || !info.Mode().IsRegular() {
		return protocol.S0{Val: 0}.Encode(), nil, nil
	}
	return protocol.S0{Val: 1}.Encode(), nil, nil
}

func handleDirExist(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s1, err := protocol.DecodeS1(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	info, statErr := os.Stat(sess.Resolve(string(s1.Data)))
	if statErr != nil || !info.IsDir() {
		return protocol.S0{Val: 0}.Encode(), nil, nil
	}
	return protocol.S0{Val: 1}.Encode(), nil, nil
}

func handleFopen(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s2, err := protocol.DecodeS2(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	path := sess.Resolve(string(s2.Data1))
	flag, perm := fopenFlags(string(s2.Data2))

	f, openErr := os.OpenFile(path, flag, perm)
	if openErr != nil {
		return nil, rxserr.HandlerFromError(openErr), nil
	}

	id := sess.AllocStreamID()
	sess.PutFile(id, &OpenFile{File: f, Name: path, Mode: string(s2.Data2)})
	return protocol.S0{Val: id}.Encode(), nil, nil
}

// fopenFlags maps a C fopen(3) mode string onto os.OpenFile flags. Only
// the modes the RXS client library actually emits are covered; an
// unrecognized mode defaults to read-only.
func fopenFlags(mode string) (int, os.FileMode) {
	switch strings.TrimSuffix(mode, "b") {
	case "r":
		return os.O_RDONLY, 0
	case "r+":
		return os.O_RDWR, 0
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0o644
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0o644
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, 0o644
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, 0o644
	default:
		return os.O_RDONLY, 0
	}
}

func handleFflush(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s0, err := protocol.DecodeS0(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	of, ok := sess.GetFile(s0.Val)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}
	if syncErr := of.File.Sync(); syncErr != nil {
		return nil, rxserr.HandlerFromError(syncErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}

func handleFclose(_ context.Context, _ *Dispatcher, sess *Session, req *protocol.Packet) ([]byte, *rxserr.HandlerError, error) {
	s0, err := protocol.DecodeS0(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	of, ok := sess.GetFile(s0.Val)
	if !ok {
		return nil, rxserr.Handler(rxserr.EBADF), nil
	}
	sess.RemoveFile(s0.Val)
	sess.CloseDataConn(s0.Val)
	if closeErr := of.File.Close(); closeErr != nil {
		return nil, rxserr.HandlerFromError(closeErr), nil
	}
	return protocol.S0{Val: 0}.Encode(), nil, nil
}
