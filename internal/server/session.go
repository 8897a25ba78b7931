package server

import (
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/pfagner/rxs/internal/transport"
)

// OpenFile is one entry in a session's open-file table: an OS file plus
// the mode it was opened with, so fflush/fclose and re-open diagnostics
// don't need to re-derive it.
type OpenFile struct {
	File *os.File
	Name string
	Mode string
}

// Session is the server-side per-connection state. It is owned
// exclusively by the goroutine running that connection's dispatch
// loop; no field is shared across sessions, giving the same isolation
// a fork-per-connection model gets for free.
type Session struct {
	ID         string // opaque connection id (uuid), for log correlation
	Channel    *transport.Channel
	ClientAddr net.Addr

	Authenticated bool
	User          string
	HomeDir       string
	EncoderMode   bool

	// CurrentDir is this session's emulated working directory. The
	// original server used a real per-process chdir(2), safe because
	// each connection was its own forked process; this server runs one
	// goroutine per connection inside a single process, so chdir/getcwd
	// are emulated against this field instead of the OS process cwd,
	// which every session would otherwise share.
	CurrentDir string

	mu           sync.Mutex
	files        map[uint32]*OpenFile
	nextStreamID uint32

	// dataConns holds the established data-channel socket for each
	// open stream: at most one in-flight fread/fwrite per stream, but a
	// session may cycle through many streams serially.
	dataConns map[uint32]net.Conn
}

// NewSession wraps conn as a new, unauthenticated session.
func NewSession(conn net.Conn) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Channel:    transport.NewChannel(conn),
		ClientAddr: conn.RemoteAddr(),
		files:      make(map[uint32]*OpenFile),
		dataConns:  make(map[uint32]net.Conn),
	}
}

// Resolve turns path into an absolute path relative to this session's
// emulated working directory, leaving an already-absolute path as is.
func (s *Session) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.CurrentDir, path)
}

// AllocStreamID returns the next stream id for this session: a
// per-session monotonic counter, not a pointer-derived value.
func (s *Session) AllocStreamID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStreamID++
	return s.nextStreamID
}

// PutFile registers an open OS file under id.
func (s *Session) PutFile(id uint32, of *OpenFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = of
}

// GetFile looks up an open file by stream id.
func (s *Session) GetFile(id uint32) (*OpenFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	of, ok := s.files[id]
	return of, ok
}

// RemoveFile drops the stream id from the table without closing it;
// closing the underlying file is left to the caller.
func (s *Session) RemoveFile(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
}

// PutDataConn registers the data-channel connection bound to stream id.
func (s *Session) PutDataConn(id uint32, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataConns[id] = conn
}

// GetDataConn returns the data-channel connection for stream id, if any.
func (s *Session) GetDataConn(id uint32) (net.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.dataConns[id]
	return conn, ok
}

// CloseDataConn closes and forgets the data connection for stream id.
func (s *Session) CloseDataConn(id uint32) {
	s.mu.Lock()
	conn, ok := s.dataConns[id]
	delete(s.dataConns, id)
	s.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Close tears down every open file and data connection owned by this
// session and closes the control connection.
func (s *Session) Close() error {
	s.mu.Lock()
	files := s.files
	s.files = make(map[uint32]*OpenFile)
	conns := s.dataConns
	s.dataConns = make(map[uint32]net.Conn)
	s.mu.Unlock()

	for _, of := range files {
		_ = of.File.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	return s.Channel.Conn().Close()
}
