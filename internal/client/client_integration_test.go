package client_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/pfagner/rxs/internal/client"
	"github.com/pfagner/rxs/internal/protocol"
	"github.com/pfagner/rxs/internal/server"
)

func startTestServer(t *testing.T) (addr string, homeDir string) {
	t.Helper()

	homeDir = t.TempDir()
	userDBPath := filepath.Join(t.TempDir(), "passwd.rxs")
	if err := os.WriteFile(userDBPath, []byte("alice secret users "+homeDir+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile userdb: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	d := &server.Dispatcher{Policy: server.NewPolicy(nil, nil), UserDBPath: userDBPath}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.ListenAndServe(ctx, ln) }()
	t.Cleanup(cancel)

	return ln.Addr().String(), homeDir
}

func dialAndAuth(t *testing.T, addr string) *client.Client {
	t.Helper()
	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Authenticate("alice", "secret", false); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c
}

func TestClientAuthenticateAndGetcwd(t *testing.T) {
	addr, homeDir := startTestServer(t)
	c := dialAndAuth(t, addr)

	cwd, err := c.Getcwd()
	if err != nil {
		t.Fatalf("Getcwd: %v", err)
	}
	if cwd != homeDir {
		t.Errorf("Getcwd() = %q, want %q", cwd, homeDir)
	}
}

func TestClientAuthenticateWrongPassword(t *testing.T) {
	addr, _ := startTestServer(t)
	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if err := c.Authenticate("alice", "wrong", false); err == nil {
		t.Fatal("expected Authenticate to fail with wrong password")
	}
}

func TestClientMkdirAndDirExist(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndAuth(t, addr)

	if err := c.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	exists, err := c.DirExist("a/b/c")
	if err != nil {
		t.Fatalf("DirExist: %v", err)
	}
	if !exists {
		t.Error("DirExist() = false, want true after MkdirAll")
	}
}

func TestClientFopenFwriteThenFreadRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndAuth(t, addr)

	content := []byte("the quick brown fox jumps over the lazy dog, repeated a few times. " +
		"the quick brown fox jumps over the lazy dog, repeated a few times.")

	wf, err := c.Fopen("roundtrip.txt", "wb")
	if err != nil {
		t.Fatalf("Fopen(w): %v", err)
	}
	if err := wf.Fwrite(content); err != nil {
		t.Fatalf("Fwrite: %v", err)
	}
	if err := wf.Close(); err != nil {
		t.Fatalf("Close(write handle): %v", err)
	}

	size, err := c.Filesize("roundtrip.txt")
	if err != nil {
		t.Fatalf("Filesize: %v", err)
	}
	if size != uint32(len(content)) {
		t.Fatalf("Filesize() = %d, want %d", size, len(content))
	}

	rf, err := c.Fopen("roundtrip.txt", "rb")
	if err != nil {
		t.Fatalf("Fopen(r): %v", err)
	}
	// Request comfortably more than the file's actual size, the way the
	// CLI's download loop does with its fixed read-ahead size: the
	// server streams whatever remains and reports EOF mid-request.
	got, eof, readErr := rf.Fread(size + 4096)
	if readErr != nil {
		t.Fatalf("Fread: %v", readErr)
	}
	if !eof {
		t.Error("Fread() eof = false, want true for a read past end of file")
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close(read handle): %v", err)
	}

	if string(got) != string(content) {
		t.Errorf("round-tripped content = %q, want %q", got, content)
	}
}

// TestClientLsFetchesEncodedOutput drives the encoder-mode path that
// actually round-trips end to end in this implementation: Ls captures
// a shell command's output server-side and re-encodes it in place as a
// sequence of fixed-size envelopes, and the client downloads it
// exactly one envelope-block at a time. Decoding the envelope back to
// the original bytes is the same logic internal/server's
// encodeFileInPlace is the inverse of.
func TestClientLsFetchesEncodedOutput(t *testing.T) {
	addr, _ := startTestServer(t)
	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	if err := c.Authenticate("alice", "secret", true); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	want := "hello-via-ls"
	remotePath, err := c.Ls("printf '%s' " + want)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}

	size, err := c.Filesize(remotePath)
	if err != nil {
		t.Fatalf("Filesize: %v", err)
	}
	if size == 0 || size%uint32(protocol.EnvelopeSize) != 0 {
		t.Fatalf("Filesize(%s) = %d, want a positive multiple of %d", remotePath, size, protocol.EnvelopeSize)
	}

	rf, err := c.Fopen(remotePath, "rb")
	if err != nil {
		t.Fatalf("Fopen(r): %v", err)
	}
	raw, _, readErr := rf.Fread(size)
	if readErr != nil {
		t.Fatalf("Fread: %v", readErr)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(raw) != int(size) {
		t.Fatalf("Fread returned %d bytes, want %d", len(raw), size)
	}

	var got []byte
	for off := 0; off < len(raw); off += protocol.EnvelopeSize {
		env, decErr := protocol.DecodeEnvelope(raw[off : off+protocol.EnvelopeSize])
		if decErr != nil {
			t.Fatalf("DecodeEnvelope: %v", decErr)
		}
		got = append(got, env.Payload()...)
	}
	if string(got) != want {
		t.Errorf("decoded Ls output = %q, want %q", got, want)
	}
}

func TestClientUnlinkRemovesServerFile(t *testing.T) {
	addr, homeDir := startTestServer(t)
	c := dialAndAuth(t, addr)

	wf, err := c.Fopen("doomed.txt", "wb")
	if err != nil {
		t.Fatalf("Fopen: %v", err)
	}
	if err := wf.Fwrite([]byte("x")); err != nil {
		t.Fatalf("Fwrite: %v", err)
	}
	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := c.Unlink("doomed.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(homeDir, "doomed.txt")); !os.IsNotExist(statErr) {
		t.Error("file still exists on disk after Unlink")
	}
}

func TestClientLastErrorTracksServerFailure(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndAuth(t, addr)

	_, err := c.Filesize("does/not/exist.txt")
	if err == nil {
		t.Fatal("expected Filesize on a missing file to fail")
	}
	if !c.LastError().IsServerSide() {
		t.Errorf("LastError() = %v, want a server-side errno", c.LastError())
	}
}
