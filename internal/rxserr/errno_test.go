package rxserr

import (
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestErrnoClientServerRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		e    Errno
	}{
		{"None", ErrnoNone},
		{"ENOENT", ENOENT},
		{"EACCES", EACCES},
		{"ErrnoInternal", ErrnoInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.e.Server()
			if !server.IsServerSide() {
				t.Errorf("Server() = %v, want IsServerSide() true", server)
			}
			if server.Client() != tt.e.Client() {
				t.Errorf("round trip mismatch: client=%v server.Client()=%v", tt.e.Client(), server.Client())
			}
			if server != tt.e.Client()+ServerBase {
				t.Errorf("Server() = %d, want %d", server, tt.e.Client()+ServerBase)
			}
		})
	}
}

func TestErrnoServerIsIdempotent(t *testing.T) {
	e := ENOENT.Server()
	if e.Server() != e {
		t.Errorf("Server() on an already-server-side Errno changed value: %v -> %v", e, e.Server())
	}
}

func TestErrnoClientIsIdempotent(t *testing.T) {
	if ENOENT.Client() != ENOENT {
		t.Errorf("Client() on an already-client-side Errno changed value: %v -> %v", ENOENT, ENOENT.Client())
	}
}

func TestErrnoIsServerSide(t *testing.T) {
	if ENOENT.IsServerSide() {
		t.Error("client-side ENOENT reported as server-side")
	}
	if !ENOENT.Server().IsServerSide() {
		t.Error("server-side ENOENT not reported as server-side")
	}
}

func TestErrnoStringIncludesSide(t *testing.T) {
	if got := ENOENT.String(); got != "client: ENOENT" {
		t.Errorf("String() = %q, want %q", got, "client: ENOENT")
	}
	if got := ENOENT.Server().String(); got != "server: ENOENT" {
		t.Errorf("String() = %q, want %q", got, "server: ENOENT")
	}
}

func TestErrnoStringUnknownValue(t *testing.T) {
	unknown := Errno(9999)
	if got := unknown.String(); got != fmt.Sprintf("errno %d", uint32(unknown)) {
		t.Errorf("String() for unknown errno = %q", got)
	}
}

func TestErrnoImplementsError(t *testing.T) {
	var err error = ENOENT
	if err.Error() != ENOENT.String() {
		t.Errorf("Error() = %q, want %q", err.Error(), ENOENT.String())
	}
}

func TestFromSyscallErrnoKnown(t *testing.T) {
	if got := FromSyscallErrno(syscall.ENOENT); got != ENOENT {
		t.Errorf("FromSyscallErrno(ENOENT) = %v, want %v", got, ENOENT)
	}
	if got := FromSyscallErrno(syscall.EACCES); got != EACCES {
		t.Errorf("FromSyscallErrno(EACCES) = %v, want %v", got, EACCES)
	}
}

func TestFromSyscallErrnoUnknownFallsBackToEIO(t *testing.T) {
	if got := FromSyscallErrno(syscall.Errno(0xDEAD)); got != EIO {
		t.Errorf("FromSyscallErrno(unknown) = %v, want EIO", got)
	}
}

func TestFromErrorNil(t *testing.T) {
	if got := FromError(nil); got != ErrnoNone {
		t.Errorf("FromError(nil) = %v, want ErrnoNone", got)
	}
}

func TestFromErrorPathError(t *testing.T) {
	_, err := os.Open("/nonexistent/path/that/should/not/exist")
	if err == nil {
		t.Fatal("expected os.Open to fail")
	}
	if got := FromError(err); got != ENOENT {
		t.Errorf("FromError(ENOENT path error) = %v, want ENOENT", got)
	}
}

func TestFromErrorNonSyscall(t *testing.T) {
	if got := FromError(fmt.Errorf("opaque failure")); got != EIO {
		t.Errorf("FromError(opaque) = %v, want EIO", got)
	}
}
