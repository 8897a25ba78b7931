package sqlstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pfagner/rxs/internal/server/userdb"
)

func writeUserDB(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwd.rxs")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func openStore(t *testing.T, sourcePath string) *Store {
	t.Helper()
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(cachePath, sourcePath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLookupReturnsParsedRecord(t *testing.T) {
	source := writeUserDB(t, "alice secret users /home/alice\n")
	s := openStore(t, source)

	rec, err := s.Lookup("alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec == nil {
		t.Fatal("Lookup(\"alice\") = nil, want a record")
	}
	want := userdb.Record{Name: "alice", Password: "secret", Group: "users", HomeDir: "/home/alice"}
	if *rec != want {
		t.Errorf("Lookup(\"alice\") = %+v, want %+v", *rec, want)
	}
}

func TestLookupUnknownUserReturnsNilWithoutError(t *testing.T) {
	source := writeUserDB(t, "alice secret users /home/alice\n")
	s := openStore(t, source)

	rec, err := s.Lookup("mallory")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec != nil {
		t.Errorf("Lookup(\"mallory\") = %+v, want nil", rec)
	}
}

func TestLookupRefreshesWhenSourceFileChanges(t *testing.T) {
	source := writeUserDB(t, "alice secret users /home/alice\n")
	s := openStore(t, source)

	if _, err := s.Lookup("alice"); err != nil {
		t.Fatalf("initial Lookup: %v", err)
	}

	// Force the mtime forward deterministically: the cache only
	// refreshes when the file's ModTime strictly advances, and two
	// writes in quick succession can otherwise land on the same
	// filesystem-clock tick.
	future := time.Now().Add(time.Second)
	if err := os.WriteFile(source, []byte("alice secret users /home/alice\nbob hunter2 users /home/bob\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(source, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	rec, err := s.Lookup("bob")
	if err != nil {
		t.Fatalf("Lookup after refresh: %v", err)
	}
	if rec == nil || rec.Name != "bob" {
		t.Errorf("Lookup(\"bob\") after refresh = %+v, want a record for bob", rec)
	}
}

func TestLookupDropsRecordsRemovedFromSource(t *testing.T) {
	source := writeUserDB(t, "alice secret users /home/alice\nbob hunter2 users /home/bob\n")
	s := openStore(t, source)

	if _, err := s.Lookup("bob"); err != nil {
		t.Fatalf("initial Lookup: %v", err)
	}

	future := time.Now().Add(time.Second)
	if err := os.WriteFile(source, []byte("alice secret users /home/alice\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(source, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	rec, err := s.Lookup("bob")
	if err != nil {
		t.Fatalf("Lookup after removal: %v", err)
	}
	if rec != nil {
		t.Errorf("Lookup(\"bob\") after removal from source = %+v, want nil", rec)
	}
}
