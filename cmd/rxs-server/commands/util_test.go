package commands

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pfagner/rxs/internal/config"
)

func TestStateDirUsesXDGStateHomeWhenSet(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_STATE_HOME", base)

	dir, err := stateDir()
	if err != nil {
		t.Fatalf("stateDir: %v", err)
	}
	want := filepath.Join(base, "rxs")
	if dir != want {
		t.Errorf("stateDir() = %q, want %q", dir, want)
	}
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		t.Errorf("stateDir() did not create %q", dir)
	}
}

func TestStateDirFallsBackToHomeDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := stateDir()
	if err != nil {
		t.Fatalf("stateDir: %v", err)
	}
	want := filepath.Join(home, ".local", "state", "rxs")
	if dir != want {
		t.Errorf("stateDir() = %q, want %q", dir, want)
	}
}

func TestGetConfigSourcePrefersExplicitPath(t *testing.T) {
	if got := getConfigSource("/etc/rxs/config.yaml"); got != "/etc/rxs/config.yaml" {
		t.Errorf("getConfigSource(explicit) = %q, want the explicit path echoed back", got)
	}
}

func TestGetConfigSourceFallsBackToDefaultsWhenNoFileExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if got := getConfigSource(""); got != "defaults" {
		t.Errorf("getConfigSource(\"\") = %q, want \"defaults\" with no config file present", got)
	}
}

func TestGetConfigSourceReportsDefaultPathWhenFileExists(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path := config.GetDefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":8721\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if got := getConfigSource(""); got != path {
		t.Errorf("getConfigSource(\"\") = %q, want %q", got, path)
	}
}

func TestReadPIDMissingFileReturnsNotRunning(t *testing.T) {
	pid, running := readPID(filepath.Join(t.TempDir(), "nonexistent.pid"))
	if running || pid != 0 {
		t.Errorf("readPID(missing) = (%d, %v), want (0, false)", pid, running)
	}
}

func TestReadPIDMalformedFileReturnsNotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxs.pid")
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	pid, running := readPID(path)
	if running || pid != 0 {
		t.Errorf("readPID(malformed) = (%d, %v), want (0, false)", pid, running)
	}
}

func TestReadPIDRunningProcessReportsTrue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxs.pid")
	self := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(self)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pid, running := readPID(path)
	if !running || pid != self {
		t.Errorf("readPID(self) = (%d, %v), want (%d, true)", pid, running, self)
	}
}

func TestReadPIDStaleEntryReportsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxs.pid")
	const implausiblePID = 1 << 30
	if err := os.WriteFile(path, []byte(strconv.Itoa(implausiblePID)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, running := readPID(path)
	if running {
		t.Error("readPID(implausible PID) = running=true, want false")
	}
}
