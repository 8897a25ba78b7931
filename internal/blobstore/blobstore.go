// Package blobstore is an archive store for captured ls output and
// served files, backed by a local directory or an S3 bucket. No other
// package in this repository calls it.
package blobstore

import (
	"context"
	"io"
)

// Store is the minimal archive contract: content-addressed by key,
// write-once-read-many. RXS never needs range reads or in-place
// updates, so this is deliberately narrower than a general filesystem
// content store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
