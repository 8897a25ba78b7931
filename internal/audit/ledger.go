// Package audit persists a durable, append-only record of every
// dispatched RXS operation to a local badger key-value store, so an
// operator can answer "what did user X do to file Y" after the fact
// without re-deriving it from ephemeral logs.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Entry is one audited operation.
type Entry struct {
	ConnID    string    `json:"conn_id"`
	User      string    `json:"user"`
	Operation string    `json:"operation"`
	Errno     string    `json:"errno"`
	DurationMs int64    `json:"duration_ms"`
	BytesIn   uint64    `json:"bytes_in"`
	BytesOut  uint64    `json:"bytes_out"`
	Time      time.Time `json:"time"`
}

// Ledger wraps a badger database keyed by a monotonically increasing
// sequence so entries are iterated back in the order they were written.
type Ledger struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (creating if needed) a badger-backed ledger at dir.
func Open(dir string) (*Ledger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audit: open %q: %w", dir, err)
	}
	seq, err := db.GetSequence([]byte("entry-seq"), 1000)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: sequence: %w", err)
	}
	return &Ledger{db: db, seq: seq}, nil
}

// Record appends e to the ledger, returning any sequence, encoding or
// write error. A nil Ledger records nothing and returns nil.
func (l *Ledger) Record(e Entry) error {
	if l == nil {
		return nil
	}
	n, err := l.seq.Next()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)

	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Recent returns up to limit of the most recently written entries.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	var out []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}); it.Valid() && len(out) < limit; it.Next() {
			item := it.Item()
			if len(item.Key()) != 8 {
				// The sequence's lease key shares this keyspace; entries
				// are the 8-byte sequence-number keys only.
				continue
			}
			if err := item.Value(func(v []byte) error {
				var e Entry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				out = append(out, e)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Close releases the underlying badger database.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.seq.Release()
	return l.db.Close()
}
