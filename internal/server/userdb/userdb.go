// Package userdb parses and looks up the RXS user database: a text file
// of whitespace-separated four-token records (name, password, group,
// home directory), optionally separated by any of "= ; { } \n". The
// file is the wire-compatible source of truth and is reloaded in full
// on every authorization.
package userdb

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Record is one parsed user database entry.
type Record struct {
	Name     string
	Password string
	Group    string
	HomeDir  string
}

// isRecordSeparator reports whether r is one of the optional record
// delimiters the format tolerates between and around token groups.
func isRecordSeparator(r rune) bool {
	switch r {
	case '=', ';', '{', '}', '\n', '\r', '\t', ' ':
		return true
	default:
		return false
	}
}

// Parse reads the entire user database file at path and returns every
// well-formed four-token record. Malformed trailing tokens (not a
// multiple of four) are reported as an error rather than silently
// dropped, since a truncated file is more likely an operational
// mistake than intentional.
func Parse(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("userdb: open %q: %w", path, err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, field := range strings.FieldsFunc(scanner.Text(), isRecordSeparator) {
			tokens = append(tokens, field)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("userdb: read %q: %w", path, err)
	}

	if len(tokens)%4 != 0 {
		return nil, fmt.Errorf("userdb: %q has %d tokens, not a multiple of 4", path, len(tokens))
	}

	records := make([]Record, 0, len(tokens)/4)
	for i := 0; i+3 < len(tokens); i += 4 {
		records = append(records, Record{
			Name:     tokens[i],
			Password: tokens[i+1],
			Group:    tokens[i+2],
			HomeDir:  tokens[i+3],
		})
	}
	return records, nil
}

// Authenticate re-parses path and looks for a record matching user and
// pass exactly. It is intentionally re-read on every call (no caching)
// so runtime edits to the user database take effect immediately;
// callers that want a faster lookup path on a busy server should go
// through sqlstore's cache instead, which itself invalidates against
// this same file.
func Authenticate(path, user, pass string) (*Record, error) {
	records, err := Parse(path)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Name == user && records[i].Password == pass {
			return &records[i], nil
		}
	}
	return nil, nil
}
