package commands

import (
	"fmt"
	"io"

	"github.com/pfagner/rxs/internal/client"
)

// downloadReadSize is the per-Fread pull size; it must be large enough
// to contain several data-channel blocks so a remote file transfers in
// a handful of round trips rather than one per block.
const downloadReadSize = 64 * 1024

// download pulls remotePath from c and writes it to w.
func download(c *client.Client, remotePath string, w io.Writer) (int64, error) {
	f, err := c.Fopen(remotePath, "rb")
	if err != nil {
		return 0, fmt.Errorf("fopen %s: %w", remotePath, err)
	}
	defer f.Close()

	size, err := c.Filesize(remotePath)
	if err != nil {
		return 0, fmt.Errorf("filesize %s: %w", remotePath, err)
	}

	var written int64
	var remaining = size
	for remaining > 0 {
		want := uint32(downloadReadSize)
		if remaining < want {
			want = remaining
		}
		chunk, eof, readErr := f.Fread(want)
		if readErr != nil {
			return written, fmt.Errorf("fread %s: %w", remotePath, readErr)
		}
		if len(chunk) > 0 {
			n, writeErr := w.Write(chunk)
			written += int64(n)
			if writeErr != nil {
				return written, fmt.Errorf("write local output: %w", writeErr)
			}
		}
		remaining -= uint32(len(chunk))
		if eof {
			break
		}
		if len(chunk) == 0 {
			break
		}
	}
	return written, nil
}

// upload pushes the contents of r to remotePath on c.
func upload(c *client.Client, remotePath string, r io.Reader) (int64, error) {
	f, err := c.Fopen(remotePath, "wb")
	if err != nil {
		return 0, fmt.Errorf("fopen %s: %w", remotePath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read local input: %w", err)
	}
	if err := f.Fwrite(data); err != nil {
		return 0, fmt.Errorf("fwrite %s: %w", remotePath, err)
	}
	return int64(len(data)), nil
}
